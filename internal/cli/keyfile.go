package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"math/big"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/Gere321123/FHETaxSystem/internal/inputproof"
	"github.com/Gere321123/FHETaxSystem/internal/paillier"
)

// KeyFile is the on-disk form of the ledger's secret key material. It must
// stay with the key service; only the derived public values go on-chain.
type KeyFile struct {
	Paillier PaillierKey `yaml:"paillier"`
	Verifier VerifierKey `yaml:"verifier"`
}

// PaillierKey holds hex n, g and λ; μ is recomputed on load.
type PaillierKey struct {
	N      string `yaml:"n"`
	G      string `yaml:"g"`
	Lambda string `yaml:"lambda"`
}

// VerifierKey holds the input-verifier EdDSA signing key.
type VerifierKey struct {
	Signer string `yaml:"signer"`
}

// Keys is a loaded key file.
type Keys struct {
	Paillier *paillier.PrivateKey
	Signer   *inputproof.Signer
}

func newKeyFile(sk *paillier.PrivateKey, signer *inputproof.Signer) KeyFile {
	return KeyFile{
		Paillier: PaillierKey{
			N:      paillier.FormatInt(sk.N),
			G:      paillier.FormatInt(sk.G),
			Lambda: paillier.FormatInt(sk.Lambda),
		},
		Verifier: VerifierKey{Signer: signer.Hex()},
	}
}

// LoadKeys reads and validates a key file.
func LoadKeys(path string) (*Keys, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read key file: %w", err)
	}
	var kf KeyFile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&kf); err != nil {
		return nil, fmt.Errorf("failed to parse key file: %w", err)
	}
	return kf.keys()
}

// loadKeys is LoadKeys reporting failures through out.
func loadKeys(out *OutputFormatter, path string) (*Keys, error) {
	keys, err := LoadKeys(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return nil, out.Fail(ExitCommandError, ErrCodeNotFound, "key file not found", err)
	case err != nil:
		return nil, out.Fail(ExitCommandError, ErrCodeKeyFile, "cannot load key file", err)
	}
	out.Log.Debug().Str("path", path).Msg("key file loaded")
	return keys, nil
}

func (kf KeyFile) keys() (*Keys, error) {
	if kf.Paillier.N == "" || kf.Paillier.G == "" || kf.Paillier.Lambda == "" {
		return nil, errors.New("key file: paillier.n, paillier.g and paillier.lambda are required")
	}
	var ints [3]*big.Int
	for i, s := range []string{kf.Paillier.N, kf.Paillier.G, kf.Paillier.Lambda} {
		x, err := paillier.ParseInt(s)
		if err != nil {
			return nil, fmt.Errorf("key file: %w", err)
		}
		ints[i] = x
	}
	sk, err := paillier.NewPrivateKey(paillier.PublicKey{N: ints[0], G: ints[1]}, ints[2])
	if err != nil {
		return nil, fmt.Errorf("key file: %w", err)
	}
	signer, err := inputproof.ParseSigner(kf.Verifier.Signer)
	if err != nil {
		return nil, fmt.Errorf("key file: verifier.signer: %w", err)
	}
	return &Keys{Paillier: sk, Signer: signer}, nil
}

// SaveKeys writes kf to path, readable by the owner only. An existing file
// is never overwritten.
func SaveKeys(path string, kf KeyFile) error {
	data, err := yaml.Marshal(kf)
	if err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// InitArgs returns the two InitLedger arguments: public key JSON and
// verifier key hex.
func (k *Keys) InitArgs() (string, string, error) {
	pk, err := json.Marshal(k.Paillier.PublicKey)
	if err != nil {
		return "", "", err
	}
	return string(pk), k.Signer.Verifier().Hex(), nil
}
