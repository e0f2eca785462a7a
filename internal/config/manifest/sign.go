package manifest

import (
	"fmt"
	"os"

	"github.com/ProtonMail/go-crypto/openpgp"
	"github.com/ProtonMail/go-crypto/openpgp/packet"

	"github.com/open-edge-platform/lume-model/internal/utils/logger"
)

// SignatureSuffix is appended to a file name to form its signature path.
const SignatureSuffix = ".asc"

func readKeyRing(keyPath string) (openpgp.EntityList, error) {
	f, err := os.Open(keyPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open key %s: %w", keyPath, err)
	}
	defer f.Close()

	ring, err := openpgp.ReadArmoredKeyRing(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read key %s: %w", keyPath, err)
	}
	return ring, nil
}

func decrypt(pk *packet.PrivateKey, passphrase []byte) error {
	if pk == nil || !pk.Encrypted {
		return nil
	}
	if len(passphrase) == 0 {
		return fmt.Errorf("private key is encrypted and no passphrase was given")
	}
	if err := pk.Decrypt(passphrase); err != nil {
		return fmt.Errorf("failed to decrypt private key: %w", err)
	}
	return nil
}

// SignFile writes an armored detached signature of path to
// path+SignatureSuffix, using the first private key in keyPath. It returns
// the signature path.
func SignFile(path, keyPath string, passphrase []byte) (string, error) {
	ring, err := readKeyRing(keyPath)
	if err != nil {
		return "", err
	}

	var signer *openpgp.Entity
	for _, e := range ring {
		if e.PrivateKey != nil {
			signer = e
			break
		}
	}
	if signer == nil {
		return "", fmt.Errorf("no private key in %s", keyPath)
	}
	if err := decrypt(signer.PrivateKey, passphrase); err != nil {
		return "", err
	}
	for _, sub := range signer.Subkeys {
		if err := decrypt(sub.PrivateKey, passphrase); err != nil {
			return "", err
		}
	}

	in, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer in.Close()

	sigPath := path + SignatureSuffix
	out, err := os.Create(sigPath)
	if err != nil {
		return "", fmt.Errorf("failed to create signature file: %w", err)
	}
	if err := openpgp.ArmoredDetachSign(out, signer, in, nil); err != nil {
		out.Close()
		return "", fmt.Errorf("failed to sign %s: %w", path, err)
	}
	if err := out.Close(); err != nil {
		return "", fmt.Errorf("failed to write signature file: %w", err)
	}

	logger.Logger().Infof("signed %s -> %s", path, sigPath)
	return sigPath, nil
}

// VerifyFile checks the armored detached signature sigPath of path
// against the keys in keyPath.
func VerifyFile(path, sigPath, keyPath string) error {
	ring, err := readKeyRing(keyPath)
	if err != nil {
		return err
	}

	signed, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer signed.Close()

	sig, err := os.Open(sigPath)
	if err != nil {
		return fmt.Errorf("failed to open signature %s: %w", sigPath, err)
	}
	defer sig.Close()

	if _, err := openpgp.CheckArmoredDetachedSignature(ring, signed, sig, nil); err != nil {
		return fmt.Errorf("signature check of %s failed: %w", path, err)
	}
	return nil
}
