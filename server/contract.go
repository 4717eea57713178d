package server

import (
	"math/big"
	"net/http"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"

	"github.com/purefi/playground-sdk-go/client"
	"github.com/purefi/playground-sdk-go/services/contract"
)

type contractMethodsRequest struct {
	// ABI 合约 JSON ABI；为空时使用 PureFi 演示合约
	ABI string `json:"abi"`
}

type contractMethodsResponse struct {
	Methods []contract.MethodOption `json:"methods"`
}

func (s *Server) handleContractMethods(w http.ResponseWriter, r *http.Request) {
	var req contractMethodsRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, codeBadRequest, err.Error())
		return
	}
	parsed, err := parseABIOrDemo(req.ABI)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, codeBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, contractMethodsResponse{Methods: contract.MethodOptions(parsed)})
}

type contractWriteRequest struct {
	ChainID         uint64   `json:"chainId"`
	ContractAddress string   `json:"contractAddress"`
	ABI             string   `json:"abi"`
	Method          string   `json:"method"`
	Args            []string `json:"args"`
	// Value 附带的原生币（wei，十进制）
	Value string `json:"value"`
	// Wait 是否等待收据
	Wait bool `json:"wait"`
}

type contractWriteResponse struct {
	*contract.WriteResult
	Receipt *client.Receipt `json:"receipt,omitempty"`
}

// handleContractWrite 使用服务端钱包调用合约写方法
func (s *Server) handleContractWrite(w http.ResponseWriter, r *http.Request) {
	if s.svc.Wallet == nil {
		writeError(w, r, http.StatusServiceUnavailable, codeUnavail, "signer key is not configured")
		return
	}

	var req contractWriteRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, codeBadRequest, err.Error())
		return
	}
	parsed, err := parseABIOrDemo(req.ABI)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, codeBadRequest, err.Error())
		return
	}
	var value *big.Int
	if v := strings.TrimSpace(req.Value); v != "" {
		var ok bool
		if value, ok = new(big.Int).SetString(v, 10); !ok || value.Sign() < 0 {
			writeError(w, r, http.StatusBadRequest, codeBadRequest, "value must be a non-negative integer (wei)")
			return
		}
	}

	svc, err := s.svc.Contract(req.ChainID)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, codeBadRequest, err.Error())
		return
	}

	res, err := svc.Write(r.Context(), &contract.WriteRequest{
		ContractAddress: req.ContractAddress,
		ABI:             parsed,
		Method:          req.Method,
		Args:            req.Args,
		Value:           value,
	})
	if err != nil {
		writeError(w, r, http.StatusBadRequest, codeBadRequest, err.Error())
		return
	}
	s.stats.RecordTransaction()

	resp := contractWriteResponse{WriteResult: res}
	if req.Wait {
		receipt, err := svc.WaitForReceipt(r.Context(), res.TxHash, nil)
		if err != nil {
			writeError(w, r, http.StatusGatewayTimeout, codeUnavail, err.Error())
			return
		}
		resp.Receipt = receipt
	}
	writeJSON(w, http.StatusOK, resp)
}

func parseABIOrDemo(abiJSON string) (*abi.ABI, error) {
	if strings.TrimSpace(abiJSON) == "" {
		return contract.DemoABI(), nil
	}
	return contract.ParseABI(abiJSON)
}
