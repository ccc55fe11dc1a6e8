package signing

import (
	"crypto/ecdsa"
	"encoding/binary"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/vmihailenco/msgpack/v5"
)

// DEX chain ids used for the phantom-agent domain: 42161 for mainnet
// perps, 421614 for the testnet.
const (
	ChainIDArbitrumOne  = 42161
	ChainIDArbitrumSepl = 421614
)

var zeroAddress = common.HexToAddress("0x0000000000000000000000000000000000000000")

// Signature is the r/s/v triple the DEX wire format expects.
type Signature struct {
	R string `json:"r"`
	S string `json:"s"`
	V int    `json:"v"`
}

// DEXSigner produces Hyperliquid-shape "phantom agent" EIP-712 signatures:
// the signed struct is not the action itself but an Agent{source,
// connectionId} wrapper, where connectionId = keccak256(msgpack(action) ||
// vaultAddress(20 bytes, zero-padded when absent) || nonce as 8-byte BE),
// under Hyperliquid's "Exchange" v"1" domain with a zero verifyingContract.
type DEXSigner struct {
	privateKey *ecdsa.PrivateKey
	address    common.Address
	chainID    int64
}

// NewDEXSigner loads a raw ECDSA key (hex, with or without 0x prefix).
func NewDEXSigner(privateKeyHex string, chainID int64) (*DEXSigner, error) {
	if len(privateKeyHex) > 2 && privateKeyHex[:2] == "0x" {
		privateKeyHex = privateKeyHex[2:]
	}
	pk, err := crypto.HexToECDSA(privateKeyHex)
	if err != nil {
		return nil, fmt.Errorf("invalid private key: %w", err)
	}
	return &DEXSigner{
		privateKey: pk,
		address:    crypto.PubkeyToAddress(pk.PublicKey),
		chainID:    chainID,
	}, nil
}

// Address returns the signer's on-chain address.
func (s *DEXSigner) Address() common.Address { return s.address }

// SignL1Action signs a mainnet/testnet L1 action. action must be a value
// msgpack can encode deterministically (ordered struct fields, not a map,
// so field order — and therefore the signature — is stable). vaultAddress
// may be the zero address for a direct (non-vault) account.
func (s *DEXSigner) SignL1Action(action interface{}, vaultAddress common.Address, nonce int64, isMainnet bool) (Signature, error) {
	connectionID, err := connectionID(action, vaultAddress, nonce)
	if err != nil {
		return Signature{}, fmt.Errorf("build connection id: %w", err)
	}

	source := "a"
	if !isMainnet {
		source = "b"
	}

	domainSeparator := phantomAgentDomainSeparator(s.chainID)
	structHash := phantomAgentStructHash(source, connectionID)

	var data []byte
	data = append(data, []byte("\x19\x01")...)
	data = append(data, domainSeparator[:]...)
	data = append(data, structHash[:]...)
	finalHash := crypto.Keccak256(data)

	sig, err := crypto.Sign(finalHash, s.privateKey)
	if err != nil {
		return Signature{}, fmt.Errorf("sign: %w", err)
	}
	if sig[64] < 27 {
		sig[64] += 27
	}

	return Signature{
		R: hexutil.Encode(sig[:32]),
		S: hexutil.Encode(sig[32:64]),
		V: int(sig[64]),
	}, nil
}

func connectionID(action interface{}, vaultAddress common.Address, nonce int64) ([32]byte, error) {
	encoded, err := msgpack.Marshal(action)
	if err != nil {
		var zero [32]byte
		return zero, err
	}

	var buf []byte
	buf = append(buf, encoded...)
	buf = append(buf, vaultAddress.Bytes()...)

	nonceBytes := make([]byte, 8)
	binary.BigEndian.PutUint64(nonceBytes, uint64(nonce))
	buf = append(buf, nonceBytes...)

	hash := crypto.Keccak256(buf)
	var result [32]byte
	copy(result[:], hash)
	return result, nil
}

// phantomAgentDomainSeparator builds the EIP-712 domain for Hyperliquid's
// "Exchange" contract: name "Exchange", version "1", the given chain id,
// and a zero verifyingContract (Hyperliquid signs against an off-chain
// phantom contract, not a deployed one).
func phantomAgentDomainSeparator(chainID int64) [32]byte {
	domainTypeHash := crypto.Keccak256([]byte("EIP712Domain(string name,string version,uint256 chainId,address verifyingContract)"))
	nameHash := crypto.Keccak256([]byte("Exchange"))
	versionHash := crypto.Keccak256([]byte("1"))

	chainIDBytes := common.LeftPadBytes(big.NewInt(chainID).Bytes(), 32)
	contractPadded := common.LeftPadBytes(zeroAddress.Bytes(), 32)

	var data []byte
	data = append(data, domainTypeHash...)
	data = append(data, nameHash...)
	data = append(data, versionHash...)
	data = append(data, chainIDBytes...)
	data = append(data, contractPadded...)

	hash := crypto.Keccak256(data)
	var result [32]byte
	copy(result[:], hash)
	return result
}

// phantomAgentStructHash hashes Agent(string source, bytes32 connectionId).
func phantomAgentStructHash(source string, connectionID [32]byte) [32]byte {
	agentTypeHash := crypto.Keccak256([]byte("Agent(string source,bytes32 connectionId)"))
	sourceHash := crypto.Keccak256([]byte(source))

	var data []byte
	data = append(data, agentTypeHash...)
	data = append(data, sourceHash...)
	data = append(data, connectionID[:]...)

	hash := crypto.Keccak256(data)
	var result [32]byte
	copy(result[:], hash)
	return result
}
