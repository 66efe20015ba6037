package prover

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark/backend/groth16"
	"github.com/consensys/gnark/constraint"
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/frontend/cs/r1cs"

	"github.com/veilpay/payroll-node/circuits"
	"github.com/veilpay/payroll-node/circuits/payment"
	"github.com/veilpay/payroll-node/config"
	"github.com/veilpay/payroll-node/log"
)

// Artifacts holds the opaque circuit artifacts produced by the trusted-setup
// pipeline: the compiled constraint system, the proving key and the
// verification key. They are loaded once at startup and injected into the
// proof service, so alternate circuit versions can be substituted without
// touching the core.
type Artifacts struct {
	CCS          constraint.ConstraintSystem
	ProvingKey   groth16.ProvingKey
	VerifyingKey groth16.VerifyingKey
}

// Setup compiles the payment circuit and runs the Groth16 setup. This is a
// development/deployment helper; production nodes load pre-generated
// artifacts with LoadArtifacts.
func Setup() (*Artifacts, error) {
	ccs, err := frontend.Compile(ecc.BN254.ScalarField(), r1cs.NewBuilder, &payment.Circuit{})
	if err != nil {
		return nil, fmt.Errorf("failed to compile payment circuit: %w", err)
	}
	pk, vk, err := groth16.Setup(ccs)
	if err != nil {
		return nil, fmt.Errorf("groth16 setup failed: %w", err)
	}
	log.Infow("payment circuit setup complete", "constraints", ccs.GetNbConstraints())
	return &Artifacts{CCS: ccs, ProvingKey: pk, VerifyingKey: vk}, nil
}

// LoadArtifacts reads the circuit artifacts from dir using the canonical
// file names from the config package. Missing or corrupt artifacts are a
// startup failure, not something to regenerate silently.
func LoadArtifacts(dir string) (*Artifacts, error) {
	ccsData, err := os.ReadFile(filepath.Join(dir, config.PaymentCircuitFilename))
	if err != nil {
		return nil, fmt.Errorf("cannot read constraint system: %w", err)
	}
	ccs := groth16.NewCS(ecc.BN254)
	if _, err := ccs.ReadFrom(bytes.NewReader(ccsData)); err != nil {
		return nil, fmt.Errorf("cannot decode constraint system: %w", err)
	}

	pkData, err := os.ReadFile(filepath.Join(dir, config.PaymentProvingKeyFilename))
	if err != nil {
		return nil, fmt.Errorf("cannot read proving key: %w", err)
	}
	pk := groth16.NewProvingKey(ecc.BN254)
	if _, err := pk.ReadFrom(bytes.NewReader(pkData)); err != nil {
		return nil, fmt.Errorf("cannot decode proving key: %w", err)
	}

	vkData, err := os.ReadFile(filepath.Join(dir, config.PaymentVerificationKeyFilename))
	if err != nil {
		return nil, fmt.Errorf("cannot read verification key: %w", err)
	}
	vk := groth16.NewVerifyingKey(ecc.BN254)
	if _, err := vk.UnsafeReadFrom(bytes.NewReader(vkData)); err != nil {
		return nil, fmt.Errorf("cannot decode verification key: %w", err)
	}

	log.Infow("circuit artifacts loaded", "dir", dir)
	return &Artifacts{CCS: ccs, ProvingKey: pk, VerifyingKey: vk}, nil
}

// StoreArtifacts writes the artifacts into dir with the canonical file
// names. Used by the circuit-compile command at deployment time.
func (a *Artifacts) StoreArtifacts(dir string) error {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("cannot create artifacts dir: %w", err)
	}
	if err := circuits.StoreConstraintSystem(a.CCS, filepath.Join(dir, config.PaymentCircuitFilename)); err != nil {
		return fmt.Errorf("cannot store constraint system: %w", err)
	}
	if err := circuits.StoreProvingKey(a.ProvingKey, filepath.Join(dir, config.PaymentProvingKeyFilename)); err != nil {
		return fmt.Errorf("cannot store proving key: %w", err)
	}
	if err := circuits.StoreVerificationKey(a.VerifyingKey, filepath.Join(dir, config.PaymentVerificationKeyFilename)); err != nil {
		return fmt.Errorf("cannot store verification key: %w", err)
	}
	return nil
}
