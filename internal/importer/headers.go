package importer

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Canonical row field keys, matching the application field names used by
// the storage layer.
const (
	FieldSequenceNo    = "sequenceNo"
	FieldCategory      = "category"
	FieldSignDate      = "signDate"
	FieldContractNo    = "contractNo"
	FieldAddendumNo    = "addendumNo"
	FieldChannelID     = "channelID"
	FieldChannelName   = "channelName"
	FieldPartnerName   = "partnerName"
	FieldWorkTitle     = "workTitle"
	FieldAuthorName    = "authorName"
	FieldWorkCode      = "workCode"
	FieldFormatType    = "formatType"
	FieldStartDate     = "startDate"
	FieldEndDate       = "endDate"
	FieldRoyaltyAmount = "royaltyAmount"
	FieldStatus        = "status"
)

// headerAliases maps accent-folded, lowercased column headers to canonical
// field keys. Sheets arrive with either full Vietnamese diacritics
// ("Số hợp đồng") or ASCII-folded variants ("So hop dong"); both fold to
// the same alias.
var headerAliases = map[string]string{
	"stt":            FieldSequenceNo,
	"so thu tu":      FieldSequenceNo,
	"phan loai":      FieldCategory,
	"the loai":       FieldCategory,
	"ngay ky":        FieldSignDate,
	"so hop dong":    FieldContractNo,
	"so hd":          FieldContractNo,
	"so phu luc":     FieldAddendumNo,
	"phu luc":        FieldAddendumNo,
	"ma kenh":        FieldChannelID,
	"ten kenh":       FieldChannelName,
	"don vi su dung": FieldPartnerName,
	"ten don vi":     FieldPartnerName,
	"doi tac":        FieldPartnerName,
	"ten tac pham":   FieldWorkTitle,
	"tac pham":       FieldWorkTitle,
	"tac gia":        FieldAuthorName,
	"ma tac pham":    FieldWorkCode,
	"dinh dang":      FieldFormatType,
	"ngay bat dau":   FieldStartDate,
	"tu ngay":        FieldStartDate,
	"ngay ket thuc":  FieldEndDate,
	"den ngay":       FieldEndDate,
	"muc nhuan but":  FieldRoyaltyAmount,
	"nhuan but":      FieldRoyaltyAmount,
	"doanh thu":      FieldRoyaltyAmount,
	"trang thai":     FieldStatus,
	"tinh trang":     FieldStatus,
}

// stripMarks removes combining diacritical marks after NFD decomposition.
var stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// FoldHeader normalizes a column header for alias lookup: diacritics are
// stripped, đ becomes d, everything is lowercased and inner whitespace is
// collapsed. The letter đ is not a decomposable form, so it is mapped
// explicitly.
func FoldHeader(header string) string {
	folded, _, err := transform.String(stripMarks, header)
	if err != nil {
		folded = header
	}
	folded = strings.Map(func(r rune) rune {
		switch r {
		case 'đ':
			return 'd'
		case 'Đ':
			return 'D'
		}
		return r
	}, folded)
	return strings.Join(strings.Fields(strings.ToLower(folded)), " ")
}

// NormalizeRow maps a raw parsed row onto canonical field keys. Columns
// with no known alias are dropped; values are whitespace-trimmed.
func NormalizeRow(row map[string]string) map[string]string {
	out := make(map[string]string, len(row))
	for header, value := range row {
		field, ok := headerAliases[FoldHeader(header)]
		if !ok {
			continue
		}
		out[field] = strings.TrimSpace(value)
	}
	return out
}
