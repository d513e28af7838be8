package provider

import "strings"

const googleModelPrefix = "models/"

// ToVendorID maps an aggregator-qualified id ("openai/gpt-4o") to the id the
// adapter for p expects. OpenRouter ids are returned unchanged.
func ToVendorID(p ID, modelID string) string {
	id := strings.TrimSpace(modelID)
	if p == OpenRouter {
		return id
	}
	if p == Google {
		id = strings.TrimPrefix(id, googleModelPrefix)
	}

	i := strings.Index(id, "/")
	if i < 0 {
		return id
	}
	d, ok := Lookup(p)
	if !ok {
		return id
	}
	prefix := id[:i]
	if prefix == string(p) || (d.AggregatorPrefix != "" && prefix == d.AggregatorPrefix) {
		return id[i+1:]
	}
	// Vendors such as Together use org/model ids natively.
	if d.NativeSlashIDs {
		return id
	}
	return id[strings.LastIndex(id, "/")+1:]
}

// ToAggregatorID qualifies a vendor-native id with the vendor segment used by
// aggregators.
func ToAggregatorID(p ID, vendorID string) string {
	if p == OpenRouter {
		return vendorID
	}
	prefix := string(p)
	if d, ok := Lookup(p); ok && d.AggregatorPrefix != "" {
		prefix = d.AggregatorPrefix
	}
	if strings.HasPrefix(vendorID, prefix+"/") {
		return vendorID
	}
	return prefix + "/" + vendorID
}

// MatchesListedID reports whether a vendor-listed id names the wanted model,
// ignoring vendor-specific decoration such as Google's "models/" prefix.
func MatchesListedID(p ID, listed, wanted string) bool {
	return ToVendorID(p, listed) == ToVendorID(p, wanted)
}
