// Package config provides configuration shared across the payroll node,
// including the canonical circuit artifact names and versioning.
package config

const (
	// PaymentCircuitVersion identifies the deployed payment circuit
	// artifacts. Artifacts from different versions are not
	// interchangeable: proofs verify only against the matching key set.
	PaymentCircuitVersion = "v1"

	// PaymentCircuitFilename is the compiled constraint system artifact.
	PaymentCircuitFilename = "payment_" + PaymentCircuitVersion + ".ccs"
	// PaymentProvingKeyFilename is the Groth16 proving key artifact.
	PaymentProvingKeyFilename = "payment_" + PaymentCircuitVersion + ".pk"
	// PaymentVerificationKeyFilename is the Groth16 verification key artifact.
	PaymentVerificationKeyFilename = "payment_" + PaymentCircuitVersion + ".vk"
	// VerifierMaterialFilename is the JSON-exported verification key
	// material consumed by the ledger-side verifier at deployment time.
	VerifierMaterialFilename = "payment_" + PaymentCircuitVersion + "_verifier.json"
)

// DefaultArtifactsDir is the subdirectory of the datadir holding circuit
// artifacts.
const DefaultArtifactsDir = "artifacts"
