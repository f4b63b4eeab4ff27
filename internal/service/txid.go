package service

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const txidSuffixLen = 6

// newTransactionID builds a "TXN-<millis>-<random>" identifier. The store
// enforces uniqueness; callers regenerate and retry on a rejected id.
// Swappable for deterministic ids in tests.
var newTransactionID = func() string {
	var buf [8]byte
	_, _ = rand.Read(buf[:])
	suffix := strconv.FormatUint(binary.BigEndian.Uint64(buf[:]), 36)
	if len(suffix) < txidSuffixLen {
		suffix = strings.Repeat("0", txidSuffixLen-len(suffix)) + suffix
	}
	return fmt.Sprintf("TXN-%d-%s", time.Now().UnixMilli(), suffix[:txidSuffixLen])
}
