package funding

import (
	"bytes"
	"encoding/json"

	"github.com/google/uuid"
)

const paymentTypeDirect = "direct"

// Metadata is what initialize attaches to a checkout and the gateway echoes back.
type Metadata struct {
	UserID         string          `json:"userId"`
	PaymentType    string          `json:"paymentType,omitempty"`
	ProductType    string          `json:"productType,omitempty"`
	ServiceDetails json.RawMessage `json:"serviceDetails,omitempty"`
}

// ParseMetadata accepts an object or a JSON string holding one; the gateway
// sends an empty string when no metadata was set.
func ParseMetadata(raw json.RawMessage) (*Metadata, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) > 0 && raw[0] == '"' {
		var inner string
		if err := json.Unmarshal(raw, &inner); err != nil {
			return nil, ErrMalformedMetadata
		}
		raw = json.RawMessage(inner)
	}

	m := &Metadata{}
	if len(bytes.TrimSpace(raw)) == 0 || bytes.Equal(raw, []byte("null")) {
		return m, nil
	}
	if err := json.Unmarshal(raw, m); err != nil {
		return nil, ErrMalformedMetadata
	}
	return m, nil
}

// IsDirect reports a checkout that pays for a product instead of funding the wallet.
func (m *Metadata) IsDirect() bool {
	return m.PaymentType == paymentTypeDirect
}

// User returns the owner, or uuid.Nil when absent or unparsable.
func (m *Metadata) User() uuid.UUID {
	id, err := uuid.Parse(m.UserID)
	if err != nil {
		return uuid.Nil
	}
	return id
}
