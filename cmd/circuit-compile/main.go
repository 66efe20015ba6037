// Command circuit-compile compiles the payment circuit, runs the Groth16
// trusted setup and writes the artifacts the payroll node loads at startup.
// It also exports the verification key material used once at deployment time
// to initialize the ledger-side verifier.
package main

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	flag "github.com/spf13/pflag"

	"github.com/veilpay/payroll-node/config"
	"github.com/veilpay/payroll-node/log"
	"github.com/veilpay/payroll-node/prover"
)

func main() {
	var destination string
	flag.StringVar(&destination, "destination", config.DefaultArtifactsDir, "destination folder for the artifacts")
	flag.Parse()
	log.Init("debug", "stdout")

	start := time.Now()
	artifacts, err := prover.Setup()
	if err != nil {
		log.Fatalf("circuit setup failed: %v", err)
	}
	log.Infow("circuit compiled and setup done",
		"version", config.PaymentCircuitVersion,
		"took", time.Since(start).String())

	if err := artifacts.StoreArtifacts(destination); err != nil {
		log.Fatalf("failed to store artifacts: %v", err)
	}

	material, err := prover.ExportVerificationKey(artifacts.VerifyingKey)
	if err != nil {
		log.Fatalf("failed to export verification key: %v", err)
	}
	data, err := json.MarshalIndent(material, "", "  ")
	if err != nil {
		log.Fatalf("failed to encode verifier material: %v", err)
	}
	verifierPath := filepath.Join(destination, config.VerifierMaterialFilename)
	if err := os.WriteFile(verifierPath, data, 0o640); err != nil {
		log.Fatalf("failed to write verifier material: %v", err)
	}

	for _, name := range []string{
		config.PaymentCircuitFilename,
		config.PaymentProvingKeyFilename,
		config.PaymentVerificationKeyFilename,
		config.VerifierMaterialFilename,
	} {
		sum, err := fileSHA256(filepath.Join(destination, name))
		if err != nil {
			log.Fatalf("failed to hash %s: %v", name, err)
		}
		log.Infow("artifact written", "file", name, "sha256", sum)
	}
}

func fileSHA256(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}
