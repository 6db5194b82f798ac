package handler

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"didregistry/internal/registry/keys"
)

// CreateDIDResponse is the HTTP response body for POST /dids.
type CreateDIDResponse struct {
	ID string `json:"id"`
}

// AddressResponse carries a single identity field. The zero identity encodes
// as the all-zero hex address, which marks an absent record on read paths.
type AddressResponse struct {
	Address string `json:"address"`
}

// KeysResponse is the parallel-array key listing for GET /dids/{id}/keys.
type KeysResponse struct {
	Xs       []string `json:"xs"`
	Ys       []string `json:"ys"`
	Purposes []int32  `json:"purposes"`
	Curves   []string `json:"curves"`
}

func newAddressResponse(address common.Address) AddressResponse {
	return AddressResponse{Address: address.Hex()}
}

func newKeysResponse(list keys.KeyList) KeysResponse {
	resp := KeysResponse{
		Xs:       make([]string, 0, list.Len()),
		Ys:       make([]string, 0, list.Len()),
		Purposes: list.Purposes,
		Curves:   list.Curves,
	}
	for i := range list.Xs {
		resp.Xs = append(resp.Xs, hexutil.Encode(list.Xs[i]))
		resp.Ys = append(resp.Ys, hexutil.Encode(list.Ys[i]))
	}
	if resp.Purposes == nil {
		resp.Purposes = []int32{}
	}
	if resp.Curves == nil {
		resp.Curves = []string{}
	}
	return resp
}
