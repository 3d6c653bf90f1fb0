package promotion

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Field is a normalized column name produced by the alias table.
type Field string

const (
	FieldRegistryNumber   Field = "registry_number"
	FieldRadioCallSign    Field = "radio_call_sign"
	FieldMMSI             Field = "mmsi"
	FieldSelfReportedName Field = "self_reported_name"
	FieldFlagCode         Field = "flag_code"
	FieldVesselType       Field = "vessel_type"
	FieldBuildYear        Field = "build_year"
	FieldRiskLevel        Field = "risk_level"
)

// columnAliases maps the column names regulatory sources actually ship to
// the normalized field set. Matching is case-insensitive.
var columnAliases = map[string]Field{
	"imo":             FieldRegistryNumber,
	"imo_number":      FieldRegistryNumber,
	"registry_number": FieldRegistryNumber,

	"ircs":            FieldRadioCallSign,
	"call_sign":       FieldRadioCallSign,
	"callsign":        FieldRadioCallSign,
	"radio_call_sign": FieldRadioCallSign,

	"mmsi": FieldMMSI,

	"vessel_name":        FieldSelfReportedName,
	"name":               FieldSelfReportedName,
	"ship_name":          FieldSelfReportedName,
	"self_reported_name": FieldSelfReportedName,

	"flag":       FieldFlagCode,
	"flag_code":  FieldFlagCode,
	"flag_state": FieldFlagCode,

	"vessel_type": FieldVesselType,
	"type":        FieldVesselType,

	"build_year": FieldBuildYear,
	"year_built": FieldBuildYear,
	"built":      FieldBuildYear,

	"risk_level": FieldRiskLevel,
	"risk":       FieldRiskLevel,
}

// NormalizeColumn maps a raw column name to a normalized field. Unknown
// columns return ("", false) and are ignored by the resolver.
func NormalizeColumn(column string) (Field, bool) {
	f, ok := columnAliases[strings.ToLower(strings.TrimSpace(column))]
	return f, ok
}

// NormalizeValue trims whitespace and applies Unicode NFC so byte-wise
// comparisons of identifier values are stable across source encodings.
func NormalizeValue(v string) string {
	return norm.NFC.String(strings.TrimSpace(v))
}
