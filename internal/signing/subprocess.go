package signing

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os/exec"
	"sync"
	"sync/atomic"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog/log"
)

// Signer is the interface the DEX adapter programs against so a private
// key never has to live in the same process as the order-routing logic;
// production deployments should prefer SubprocessSigner over DEXSigner.
type Signer interface {
	Address() common.Address
	SignL1Action(action interface{}, vaultAddress common.Address, nonce int64, isMainnet bool) (Signature, error)
}

var _ Signer = (*DEXSigner)(nil)
var _ Signer = (*SubprocessSigner)(nil)
var _ Signer = (*RefusingSigner)(nil)

// signRequest/signResponse are the NDJSON messages exchanged with an
// out-of-process signer, modeled as a minimal JSON-RPC shape.
type signRequest struct {
	ID     uint64          `json:"id"`
	Method string          `json:"method"`
	Params signRequestBody `json:"params"`
}

type signRequestBody struct {
	Action       interface{} `json:"action"`
	VaultAddress string      `json:"vault_address"`
	Nonce        int64       `json:"nonce"`
	IsMainnet    bool        `json:"is_mainnet"`
}

type signResponse struct {
	ID     uint64  `json:"id"`
	Result *Signature `json:"result,omitempty"`
	Error  string  `json:"error,omitempty"`
}

type addressResponse struct {
	Address string `json:"address"`
}

// SubprocessSigner drives a child process over NDJSON stdio: one
// {id, method: "sign_l1", params} request per line, one {id, result}
// or {id, error} reply per line. The child process holds the private key;
// this process never sees it.
type SubprocessSigner struct {
	cmd     *exec.Cmd
	stdin   io.WriteCloser
	scanner *bufio.Scanner

	mu      sync.Mutex
	idSeq   atomic.Uint64
	address common.Address
}

// NewSubprocessSigner launches path as a child process and performs an
// initial "get_address" handshake.
func NewSubprocessSigner(path string, args ...string) (*SubprocessSigner, error) {
	cmd := exec.Command(path, args...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("stdout pipe: %w", err)
	}
	cmd.Stderr = logWriter{}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start signer subprocess: %w", err)
	}

	s := &SubprocessSigner{
		cmd:     cmd,
		stdin:   stdin,
		scanner: bufio.NewScanner(stdout),
	}
	s.scanner.Buffer(make([]byte, 64*1024), 1<<20)

	if err := s.fetchAddress(); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

type logWriter struct{}

func (logWriter) Write(p []byte) (int, error) {
	log.Warn().Str("component", "signer_subprocess").Msg(string(p))
	return len(p), nil
}

func (s *SubprocessSigner) fetchAddress() error {
	req := map[string]interface{}{"id": s.idSeq.Add(1), "method": "get_address"}
	line, err := json.Marshal(req)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := fmt.Fprintf(s.stdin, "%s\n", line); err != nil {
		return fmt.Errorf("write get_address: %w", err)
	}
	if !s.scanner.Scan() {
		return fmt.Errorf("signer subprocess closed before replying to get_address")
	}
	var resp struct {
		Result addressResponse `json:"result"`
		Error  string          `json:"error"`
	}
	if err := json.Unmarshal(s.scanner.Bytes(), &resp); err != nil {
		return fmt.Errorf("parse get_address reply: %w", err)
	}
	if resp.Error != "" {
		return fmt.Errorf("signer subprocess: %s", resp.Error)
	}
	s.address = common.HexToAddress(resp.Result.Address)
	return nil
}

// Address returns the address fetched during the handshake.
func (s *SubprocessSigner) Address() common.Address { return s.address }

// SignL1Action sends a sign_l1 request and blocks for the matching reply.
func (s *SubprocessSigner) SignL1Action(action interface{}, vaultAddress common.Address, nonce int64, isMainnet bool) (Signature, error) {
	req := signRequest{
		ID:     s.idSeq.Add(1),
		Method: "sign_l1",
		Params: signRequestBody{
			Action:       action,
			VaultAddress: vaultAddress.Hex(),
			Nonce:        nonce,
			IsMainnet:    isMainnet,
		},
	}
	line, err := json.Marshal(req)
	if err != nil {
		return Signature{}, fmt.Errorf("marshal sign request: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := fmt.Fprintf(s.stdin, "%s\n", line); err != nil {
		return Signature{}, fmt.Errorf("write sign request: %w", err)
	}
	if !s.scanner.Scan() {
		return Signature{}, fmt.Errorf("signer subprocess closed without replying")
	}
	var resp signResponse
	if err := json.Unmarshal(s.scanner.Bytes(), &resp); err != nil {
		return Signature{}, fmt.Errorf("parse sign reply: %w", err)
	}
	if resp.Error != "" {
		return Signature{}, fmt.Errorf("signer subprocess: %s", resp.Error)
	}
	if resp.Result == nil {
		return Signature{}, fmt.Errorf("signer subprocess: empty result")
	}
	return *resp.Result, nil
}

// Close terminates the child process.
func (s *SubprocessSigner) Close() error {
	s.stdin.Close()
	return s.cmd.Wait()
}

// RefusingSigner is the fallback used when no key material and no
// subprocess signer are configured: it satisfies the Signer interface but
// refuses every signing request, so startup can proceed in a read-only or
// dry-run mode without a nil-pointer panic deep in an adapter.
type RefusingSigner struct{}

func (RefusingSigner) Address() common.Address { return zeroAddress }

func (RefusingSigner) SignL1Action(interface{}, common.Address, int64, bool) (Signature, error) {
	return Signature{}, fmt.Errorf("signing: no signer configured, refusing to sign")
}
