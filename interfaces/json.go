package interfaces

import (
	"encoding/json"
	"fmt"
)

// The value types marshal as 0x-prefixed hex strings so transition payloads
// and API bodies stay readable and stable.

func (addr AccountAddress) MarshalJSON() ([]byte, error) {
	return json.Marshal(addr.String())
}

func (addr *AccountAddress) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := NewAccountAddressFromHex(s)
	if err != nil {
		return fmt.Errorf("account address: %w", err)
	}
	*addr = parsed
	return nil
}

func (id ContentID) MarshalJSON() ([]byte, error) {
	return json.Marshal("0x" + id.String())
}

func (id *ContentID) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := NewContentIDFromHex(s)
	if err != nil {
		return fmt.Errorf("content id: %w", err)
	}
	*id = parsed
	return nil
}

func (h CiphertextHandle) MarshalJSON() ([]byte, error) {
	return json.Marshal(h.String())
}

func (h *CiphertextHandle) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := NewCiphertextHandleFromHex(s)
	if err != nil {
		return fmt.Errorf("ciphertext handle: %w", err)
	}
	*h = parsed
	return nil
}
