package eth

import (
	"crypto/ecdsa"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

// SignatureLength is the byte length of an Ethereum [R || S || V] signature
const SignatureLength = 65

// TextHash returns the hash a wallet signs for a personal_sign message,
// per EIP-191: keccak256("\x19Ethereum Signed Message:\n" + len(msg) + msg).
func TextHash(message []byte) []byte {
	prefixed := fmt.Sprintf("\x19Ethereum Signed Message:\n%d%s", len(message), message)
	return crypto.Keccak256([]byte(prefixed))
}

// RecoverAddress recovers the checksummed address that signed message.
// The signature is the 0x-prefixed hex form wallets produce, with the
// recovery id in its final byte as either 0/1 or 27/28.
func RecoverAddress(message string, signatureHex string) (common.Address, error) {
	sig, err := hexutil.Decode(signatureHex)
	if err != nil {
		return common.Address{}, fmt.Errorf("decode signature: %w", err)
	}
	if len(sig) != SignatureLength {
		return common.Address{}, fmt.Errorf("signature must be %d bytes, got %d", SignatureLength, len(sig))
	}

	// crypto.SigToPub wants the recovery id as 0/1
	recSig := make([]byte, SignatureLength)
	copy(recSig, sig)
	if recSig[64] >= 27 {
		recSig[64] -= 27
	}
	if recSig[64] > 1 {
		return common.Address{}, fmt.Errorf("invalid recovery id %d", sig[64])
	}

	pub, err := crypto.SigToPub(TextHash([]byte(message)), recSig)
	if err != nil {
		return common.Address{}, fmt.Errorf("recover public key: %w", err)
	}

	return crypto.PubkeyToAddress(*pub), nil
}

// SignText signs message with key the way a wallet would, returning the
// 0x-prefixed hex signature with V as 27/28. RecoverAddress inverts it.
func SignText(message string, key *ecdsa.PrivateKey) (string, error) {
	sig, err := crypto.Sign(TextHash([]byte(message)), key)
	if err != nil {
		return "", err
	}
	sig[64] += 27
	return hexutil.Encode(sig), nil
}
