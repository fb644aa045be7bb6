package stats

import "strings"

// countryMapIDs maps ISO 3166-1 alpha-2 codes to the numeric ids used by the
// world map. It is a closed set; extend it when new visitor countries show up.
var countryMapIDs = map[string]string{
	"ID": "360", // Indonesia
	"US": "840", // United States
	"GB": "826", // United Kingdom
	"AU": "036", // Australia
	"SG": "702", // Singapore
	"MY": "458", // Malaysia
	"JP": "392", // Japan
	"CN": "156", // China
	"IN": "356", // India
	"DE": "276", // Germany
	"FR": "250", // France
	"CA": "124", // Canada
}

// CountryMapID returns the numeric map id for code, or code unchanged when unknown
func CountryMapID(code string) string {
	if id, ok := countryMapIDs[strings.ToUpper(strings.TrimSpace(code))]; ok {
		return id
	}
	return code
}
