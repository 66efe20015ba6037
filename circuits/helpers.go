// Package circuits contains the constraint systems used by the payment
// protocol and helpers to persist their compiled artifacts.
package circuits

import (
	"fmt"
	"os"

	"github.com/consensys/gnark/backend/groth16"
	"github.com/consensys/gnark/constraint"

	"github.com/veilpay/payroll-node/log"
)

// StoreConstraintSystem stores the compiled constraint system in a file.
func StoreConstraintSystem(cs constraint.ConstraintSystem, filepath string) error {
	fd, err := os.Create(filepath)
	if err != nil {
		return err
	}
	defer closeFile(fd, "constraint system")
	if _, err := cs.WriteTo(fd); err != nil {
		return err
	}
	log.Debugw("constraint system written", "path", filepath)
	return nil
}

// StoreProvingKey stores the proving key in a file.
func StoreProvingKey(pk groth16.ProvingKey, filepath string) error {
	fd, err := os.Create(filepath)
	if err != nil {
		return err
	}
	defer closeFile(fd, "proving key")
	if _, err := pk.WriteTo(fd); err != nil {
		return err
	}
	log.Debugw("proving key written", "path", filepath)
	return nil
}

// StoreVerificationKey stores the verification key in a file.
func StoreVerificationKey(vk groth16.VerifyingKey, filepath string) error {
	fd, err := os.Create(filepath)
	if err != nil {
		return err
	}
	defer closeFile(fd, "verification key")
	if _, err := vk.WriteRawTo(fd); err != nil {
		return err
	}
	log.Debugw("verification key written", "path", filepath)
	return nil
}

func closeFile(fd *os.File, what string) {
	if err := fd.Close(); err != nil {
		log.Warnw(fmt.Sprintf("error closing %s file", what), "error", err)
	}
}
