package encoding

import (
	"fmt"

	"github.com/tendermint/lightclients/crypto"
	"github.com/tendermint/lightclients/crypto/bls12381"
	"github.com/tendermint/lightclients/crypto/ed25519"
	"github.com/tendermint/lightclients/crypto/secp256k1"
)

// PubKeyFromTypeAndBytes rebuilds a public key from its type name and raw
// bytes, checking the length expected for the type.
func PubKeyFromTypeAndBytes(keyType string, bz []byte) (crypto.PubKey, error) {
	switch keyType {
	case ed25519.KeyType:
		if len(bz) != ed25519.PubKeySize {
			return nil, fmt.Errorf("invalid size for PubKeyEd25519. Got %d, expected %d",
				len(bz), ed25519.PubKeySize)
		}
		return ed25519.PubKey(append([]byte(nil), bz...)), nil
	case secp256k1.KeyType:
		if len(bz) != secp256k1.PubKeySize {
			return nil, fmt.Errorf("invalid size for PubKeySecp256k1. Got %d, expected %d",
				len(bz), secp256k1.PubKeySize)
		}
		return secp256k1.PubKey(append([]byte(nil), bz...)), nil
	case bls12381.KeyType:
		if len(bz) != bls12381.PubKeySize {
			return nil, fmt.Errorf("invalid size for PubKeyBLS12381. Got %d, expected %d",
				len(bz), bls12381.PubKeySize)
		}
		return bls12381.PubKey(append([]byte(nil), bz...)), nil
	default:
		return nil, fmt.Errorf("key type %q not supported", keyType)
	}
}
