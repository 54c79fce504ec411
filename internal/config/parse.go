package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"vaultScope/internal/model"
)

// ParseAddress accepts all-lower or all-upper hex, or mixed case that matches the EIP-55 checksum.
func ParseAddress(input string) (common.Address, error) {
	input = strings.TrimSpace(input)
	if !common.IsHexAddress(input) {
		return common.Address{}, model.Errorf(model.ErrMalformedAddress, "parse address", "invalid address %q", input)
	}
	addr := common.HexToAddress(input)
	body := strings.TrimPrefix(strings.TrimPrefix(input, "0x"), "0X")
	if body != strings.ToLower(body) && body != strings.ToUpper(body) && "0x"+body != addr.Hex() {
		return common.Address{}, model.Errorf(model.ErrMalformedAddress, "parse address", "bad checksum %q, want %s", input, addr.Hex())
	}
	return addr, nil
}

// ParseOptionalAddress is ParseAddress that maps an empty input to the zero address.
func ParseOptionalAddress(input string) (common.Address, error) {
	if strings.TrimSpace(input) == "" {
		return common.Address{}, nil
	}
	return ParseAddress(input)
}

// ParseMarketIDs converts hex market ids into 32-byte hashes.
func ParseMarketIDs(inputs []string) ([]common.Hash, error) {
	ids := make([]common.Hash, 0, len(inputs))
	for _, input := range inputs {
		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		data, err := hexutil.Decode(input)
		if err != nil {
			return nil, model.Errorf(model.ErrConfiguration, "parse market id", "invalid market id %s", input)
		}
		if len(data) != 32 {
			return nil, model.Errorf(model.ErrConfiguration, "parse market id", "invalid market id length %s", input)
		}
		ids = append(ids, common.BytesToHash(data))
	}
	return ids, nil
}

// ParseSelector converts a 0x-prefixed 4-byte selector. Empty input yields the zero selector.
func ParseSelector(input string) ([4]byte, error) {
	var sel [4]byte
	input = strings.TrimSpace(input)
	if input == "" {
		return sel, nil
	}
	data, err := hexutil.Decode(input)
	if err != nil || len(data) != 4 {
		return sel, model.Errorf(model.ErrConfiguration, "parse selector", "invalid selector %q", input)
	}
	copy(sel[:], data)
	return sel, nil
}

// ParseClock parses HH:MM or HH:MM:SS into an offset from midnight.
func ParseClock(input string) (time.Duration, error) {
	parts := strings.Split(strings.TrimSpace(input), ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, fmt.Errorf("invalid time of day %q", input)
	}
	limits := []int{23, 59, 59}
	units := []time.Duration{time.Hour, time.Minute, time.Second}
	var out time.Duration
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 || n > limits[i] {
			return 0, fmt.Errorf("invalid time of day %q", input)
		}
		out += time.Duration(n) * units[i]
	}
	return out, nil
}
