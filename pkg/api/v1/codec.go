// Package apiv1 defines the RPC messages and Connect bindings of the
// split-generator API (package splitgen.v1).
//
// Messages are plain Go structs carried by a JSON codec, so the API is
// reachable with the Connect protocol from any HTTP client:
//
//	curl -X POST http://localhost:8080/splitgen.v1.BillService/GetBillSummary \
//	  -H 'Content-Type: application/json' -H 'Authorization: Bearer ...' \
//	  -d '{"billId":"..."}'
//
// Money is always a decimal string. Responses carry exactly two decimal
// places; requests accept any precision.
package apiv1

import (
	"encoding/json"
	"fmt"
)

// Codec marshals messages as JSON. Its name replaces Connect's default
// "json" codec.
type Codec struct{}

// Name implements connect.Codec.
func (Codec) Name() string { return "json" }

// Marshal implements connect.Codec.
func (Codec) Marshal(msg any) ([]byte, error) {
	return json.Marshal(msg)
}

// Unmarshal implements connect.Codec. An empty body decodes to the zero
// message.
func (Codec) Unmarshal(data []byte, msg any) error {
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, msg); err != nil {
		return fmt.Errorf("invalid JSON message: %w", err)
	}
	return nil
}
