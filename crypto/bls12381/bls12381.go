package bls12381

import (
	"bytes"
	"crypto/subtle"
	"errors"
	"fmt"

	blst "github.com/supranational/blst/bindings/go"

	"github.com/tendermint/lightclients/crypto"
)

//-------------------------------------

var _ crypto.PrivKey = PrivKey{}

const (
	// PubKeySize is the size, in bytes, of a compressed G1 public key.
	PubKeySize = 48
	// PrivateKeySize is the size, in bytes, of a serialized scalar.
	PrivateKeySize = 32
	// SignatureSize is the size, in bytes, of a compressed G2 signature.
	SignatureSize = 96

	KeyType = "bls12381"
)

// dst is the proof-of-possession ciphersuite used by validators.
var dst = []byte("BLS_SIG_BLS12381G2_XMD:SHA-256_SSWU_RO_POP_")

var (
	ErrNoSignatures     = errors.New("bls12381: no signatures to aggregate")
	ErrInvalidSignature = errors.New("bls12381: invalid signature bytes")
)

// PrivKey implements crypto.PrivKey.
type PrivKey []byte

// Bytes returns the serialized scalar.
func (privKey PrivKey) Bytes() []byte {
	return []byte(privKey)
}

func (privKey PrivKey) secretKey() *blst.SecretKey {
	if len(privKey) != PrivateKeySize {
		panic(fmt.Sprintf("incorrect private key %d bytes but expected %d bytes", len(privKey), PrivateKeySize))
	}
	sk := new(blst.SecretKey).Deserialize(privKey)
	if sk == nil {
		panic("invalid bls12381 private key")
	}
	return sk
}

// Sign produces a compressed G2 signature on msg.
func (privKey PrivKey) Sign(msg []byte) ([]byte, error) {
	sig := new(blst.P2Affine).Sign(privKey.secretKey(), msg, dst)
	if sig == nil {
		return nil, errors.New("bls12381: signing failed")
	}
	return sig.Compress(), nil
}

// PubKey gets the corresponding public key from the private key.
//
// Panics if the private key is not initialized.
func (privKey PrivKey) PubKey() crypto.PubKey {
	return PubKey(new(blst.P1Affine).From(privKey.secretKey()).Compress())
}

// Equals runs in constant time based on length of the keys.
func (privKey PrivKey) Equals(other crypto.PrivKey) bool {
	if otherBLS, ok := other.(PrivKey); ok {
		return subtle.ConstantTimeCompare(privKey[:], otherBLS[:]) == 1
	}
	return false
}

func (privKey PrivKey) Type() string {
	return KeyType
}

// GenPrivKey generates a new private key from OS randomness.
func GenPrivKey() PrivKey {
	return genPrivKey(crypto.CRandBytes(32))
}

// GenPrivKeyFromSecret derives the key material from sha256(secret).
func GenPrivKeyFromSecret(secret []byte) PrivKey {
	return genPrivKey(crypto.Checksum(secret))
}

func genPrivKey(ikm []byte) PrivKey {
	sk := blst.KeyGen(ikm)
	if sk == nil {
		panic("bls12381: key generation failed")
	}
	return PrivKey(sk.Serialize())
}

//-------------------------------------

var _ crypto.PubKey = PubKey{}

// PubKey implements crypto.PubKey for BLS12-381 with public keys in G1.
type PubKey []byte

// Address is the SHA256-20 of the compressed pubkey bytes.
func (pubKey PubKey) Address() crypto.Address {
	if len(pubKey) != PubKeySize {
		panic("pubkey is incorrect size")
	}
	return crypto.AddressHash(pubKey)
}

// Bytes returns the PubKey byte format.
func (pubKey PubKey) Bytes() []byte {
	return []byte(pubKey)
}

func (pubKey PubKey) VerifySignature(msg []byte, sig []byte) bool {
	if len(sig) != SignatureSize || len(pubKey) != PubKeySize {
		return false
	}
	pk := new(blst.P1Affine).Uncompress(pubKey)
	if pk == nil {
		return false
	}
	s := new(blst.P2Affine).Uncompress(sig)
	if s == nil {
		return false
	}
	return s.Verify(true, pk, true, msg, dst)
}

func (pubKey PubKey) String() string {
	return fmt.Sprintf("PubKeyBLS12381{%X}", []byte(pubKey))
}

func (pubKey PubKey) Type() string {
	return KeyType
}

func (pubKey PubKey) Equals(other crypto.PubKey) bool {
	if otherBLS, ok := other.(PubKey); ok {
		return bytes.Equal(pubKey[:], otherBLS[:])
	}
	return false
}

//-------------------------------------

// AggregateSignatures combines compressed signatures into one compressed
// aggregate signature.
func AggregateSignatures(sigs [][]byte) ([]byte, error) {
	if len(sigs) == 0 {
		return nil, ErrNoSignatures
	}
	agg := new(blst.P2Aggregate)
	if !agg.AggregateCompressed(sigs, true) {
		return nil, ErrInvalidSignature
	}
	return agg.ToAffine().Compress(), nil
}

// VerifyAggregateSignature checks that sig is the aggregate of signatures
// by every key in pubKeys over the same msg.
func VerifyAggregateSignature(pubKeys []crypto.PubKey, msg, sig []byte) bool {
	if len(pubKeys) == 0 || len(sig) != SignatureSize {
		return false
	}
	s := new(blst.P2Affine).Uncompress(sig)
	if s == nil {
		return false
	}
	pks := make([]*blst.P1Affine, len(pubKeys))
	for i, pk := range pubKeys {
		blsPk, ok := pk.(PubKey)
		if !ok || len(blsPk) != PubKeySize {
			return false
		}
		pks[i] = new(blst.P1Affine).Uncompress(blsPk)
		if pks[i] == nil {
			return false
		}
	}
	return s.FastAggregateVerify(true, pks, msg, dst)
}
