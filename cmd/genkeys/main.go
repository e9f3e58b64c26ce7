// cmd/genkeys/main.go
//
// One-shot provisioning tool: creates the ES256 license keypair in the
// configured key store if it does not exist yet. Run this once before
// deploying the server so a fleet of instances never races to generate keys.
package main

import (
	"fmt"
	"log"

	"github.com/nulldental/license-server/internal/config"
	"github.com/nulldental/license-server/internal/licensing"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration:", err)
	}

	var store licensing.KeyStore
	if cfg.License.S3Bucket != "" {
		store, err = licensing.NewS3KeyStore(
			cfg.License.S3Region,
			cfg.License.AWSAccessKeyID,
			cfg.License.AWSSecretKey,
			cfg.License.S3Bucket,
			cfg.License.S3Prefix,
		)
		if err != nil {
			log.Fatal("Failed to initialize S3 key store:", err)
		}
	} else {
		store = licensing.NewFileKeyStore(cfg.License.KeysDir)
	}

	keys, err := licensing.NewKeyProvider(store)
	if err != nil {
		log.Fatal("Failed to provision signing keys:", err)
	}
	if keys.Degraded() {
		log.Fatal("key store rejected the generated keypair; nothing was persisted")
	}

	fmt.Printf("License signing keypair ready at %s\n", store.Location())
}
