package app

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/haven-collective/haven/pkg/cryptox"
	"github.com/haven-collective/haven/pkg/idx"
	"github.com/haven-collective/haven/pkg/jwtx"
)

// InitSigningKeys builds the EdDSA signer, the published key set and the
// verifier. With HAVEN_SIGNING_KEY_FILE set the PEM key is loaded from disk
// and tokens survive restarts; otherwise an ephemeral key is generated and
// all existing tokens become invalid on restart.
func InitSigningKeys(cfg Config, logger *slog.Logger) (jwtx.Signer, *jwtx.KeySet, jwtx.Verifier, error) {
	var pemKey []byte
	var err error

	if cfg.SigningKeyFile != "" {
		pemKey, err = os.ReadFile(cfg.SigningKeyFile)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("failed to read signing key file: %w", err)
		}
		logger.Info("signing key loaded", "path", cfg.SigningKeyFile)
	} else {
		pemKey, err = cryptox.GenerateEd25519Key()
		if err != nil {
			return nil, nil, nil, fmt.Errorf("failed to generate signing key: %w", err)
		}
		logger.Warn("ephemeral signing key generated, all existing tokens are now invalid")
	}

	signer, err := jwtx.NewSignerEdDSA(idx.New().String(), pemKey)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to initialize signer: %w", err)
	}

	keys := jwtx.NewKeySet()
	if err := keys.AddSigner(signer); err != nil {
		return nil, nil, nil, fmt.Errorf("failed to publish signing key: %w", err)
	}

	verifier := jwtx.NewVerifierEdDSA(keys, cfg.Issuer)
	return signer, keys, verifier, nil
}
