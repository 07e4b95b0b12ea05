package auth

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"encoding/pem"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const (
	PublicKeyFile  = "jwtPublic.pem"
	PrivateKeyFile = "jwtPrivate.pem"
)

// LoadOrCreateKeys reads the ES256 signing key pair from dir. When neither
// file exists a new P-256 pair is generated and written.
func LoadOrCreateKeys(dir string, log *zap.Logger) (*ecdsa.PrivateKey, error) {
	pubPath := filepath.Join(dir, PublicKeyFile)
	privPath := filepath.Join(dir, PrivateKeyFile)

	pubExists, err := fileExists(pubPath)
	if err != nil {
		return nil, err
	}
	privExists, err := fileExists(privPath)
	if err != nil {
		return nil, err
	}

	switch {
	case !pubExists && !privExists:
		log.Info("ECDSA key files missing, generating new pair")
		key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
		if err != nil {
			return nil, errors.Wrap(err, "generate key")
		}
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, errors.Wrap(err, "create data dir")
		}
		if err := writePublicKey(&key.PublicKey, pubPath); err != nil {
			return nil, err
		}
		log.Info("JWT public key saved", zap.String("path", pubPath))
		if err := writePrivateKey(key, privPath); err != nil {
			return nil, err
		}
		log.Info("JWT private key saved", zap.String("path", privPath))
		return key, nil
	case pubExists != privExists:
		return nil, errors.Errorf("incomplete key pair in %s: both %s and %s are required", dir, PublicKeyFile, PrivateKeyFile)
	}

	log.Info("loading JWT keys", zap.String("dir", dir))
	key, err := readPrivateKey(privPath)
	if err != nil {
		return nil, err
	}
	pub, err := readPublicKey(pubPath)
	if err != nil {
		return nil, err
	}
	if !pub.Equal(&key.PublicKey) {
		return nil, errors.Errorf("%s does not match %s", PublicKeyFile, PrivateKeyFile)
	}
	return key, nil
}

func fileExists(path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, errors.Wrapf(err, "stat %s", path)
}

func writePublicKey(pub *ecdsa.PublicKey, path string) error {
	der, err := x509.MarshalPKIXPublicKey(pub)
	if err != nil {
		return errors.Wrap(err, "marshal public key")
	}
	data := pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der})
	return errors.Wrapf(os.WriteFile(path, data, 0o644), "write %s", path)
}

func writePrivateKey(key *ecdsa.PrivateKey, path string) error {
	der, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		return errors.Wrap(err, "marshal private key")
	}
	data := pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der})
	return errors.Wrapf(os.WriteFile(path, data, 0o600), "write %s", path)
}

func readPEM(path string) (*pem.Block, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read %s", path)
	}
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, errors.Errorf("%s: no PEM block", path)
	}
	return block, nil
}

func readPrivateKey(path string) (*ecdsa.PrivateKey, error) {
	block, err := readPEM(path)
	if err != nil {
		return nil, err
	}
	parsed, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, errors.Wrapf(err, "parse %s", path)
	}
	key, ok := parsed.(*ecdsa.PrivateKey)
	if !ok {
		return nil, errors.Errorf("%s: not an ECDSA private key", path)
	}
	return key, nil
}

func readPublicKey(path string) (*ecdsa.PublicKey, error) {
	block, err := readPEM(path)
	if err != nil {
		return nil, err
	}
	parsed, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, errors.Wrapf(err, "parse %s", path)
	}
	pub, ok := parsed.(*ecdsa.PublicKey)
	if !ok {
		return nil, errors.Errorf("%s: not an ECDSA public key", path)
	}
	return pub, nil
}
