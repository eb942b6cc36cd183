package discovery

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// TXTRecordMap is a map of TXT record key-value pairs.
type TXTRecordMap map[string]string

// EncodeReceiverTXT creates the TXT records a receiver publishes.
func EncodeReceiverTXT(info *ReceiverInfo) TXTRecordMap {
	txt := make(TXTRecordMap)

	txt[TXTKeyID] = info.ID
	txt[TXTKeyFriendlyName] = info.FriendlyName
	txt[TXTKeyModel] = info.Model
	txt[TXTKeyVersion] = TXTVersion

	if info.Capabilities != 0 {
		txt[TXTKeyCapabilities] = strconv.FormatUint(info.Capabilities, 10)
	}

	return txt
}

// DecodeReceiverTXT parses a receiver's TXT records into info.
func DecodeReceiverTXT(txt TXTRecordMap, info *ReceiverInfo) error {
	var ok bool

	info.ID, ok = txt[TXTKeyID]
	if !ok || info.ID == "" {
		return fmt.Errorf("%w: %s", ErrMissingRequired, TXTKeyID)
	}
	info.FriendlyName, ok = txt[TXTKeyFriendlyName]
	if !ok {
		return fmt.Errorf("%w: %s", ErrMissingRequired, TXTKeyFriendlyName)
	}
	info.Model, ok = txt[TXTKeyModel]
	if !ok {
		return fmt.Errorf("%w: %s", ErrMissingRequired, TXTKeyModel)
	}

	// Older receivers omit the version.
	info.Version = txt[TXTKeyVersion]

	if ca, ok := txt[TXTKeyCapabilities]; ok {
		v, err := strconv.ParseUint(ca, 10, 64)
		if err != nil {
			return fmt.Errorf("%w: %s=%q", ErrInvalidTXTRecord, TXTKeyCapabilities, ca)
		}
		info.Capabilities = v
	}
	return nil
}

// TXTRecordsToStrings converts a TXTRecordMap to "key=value" strings, sorted
// by key.
func TXTRecordsToStrings(txt TXTRecordMap) []string {
	result := make([]string, 0, len(txt))
	for k, v := range txt {
		result = append(result, k+"="+v)
	}
	sort.Strings(result)
	return result
}

// StringsToTXTRecords parses a slice of "key=value" strings into a TXTRecordMap.
func StringsToTXTRecords(strs []string) TXTRecordMap {
	txt := make(TXTRecordMap)
	for _, s := range strs {
		k, v, found := strings.Cut(s, "=")
		if !found && k == "" {
			continue
		}
		// Keys are case-insensitive; the first occurrence wins.
		k = strings.ToLower(k)
		if _, dup := txt[k]; !dup {
			txt[k] = v
		}
	}
	return txt
}

// ValidateInstanceName checks if an instance name is valid for mDNS.
func ValidateInstanceName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: empty name", ErrInstanceNameTooLong)
	}
	if len(name) > MaxInstanceNameLen {
		return ErrInstanceNameTooLong
	}
	return nil
}

// InstanceName derives a valid instance name from a friendly name,
// truncating at a UTF-8 boundary.
func InstanceName(friendlyName string) string {
	if len(friendlyName) <= MaxInstanceNameLen {
		return friendlyName
	}
	cut := MaxInstanceNameLen
	for cut > 0 && !isRuneStart(friendlyName[cut]) {
		cut--
	}
	return friendlyName[:cut]
}

func isRuneStart(b byte) bool {
	return b&0xC0 != 0x80
}
