package importer

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/stevedao0/newcm-sub000/internal/storage"
)

// Flow selects which import sheet is being reconciled.
type Flow string

const (
	// FlowInfo imports contract metadata rows
	FlowInfo Flow = "info"
	// FlowWorkList imports detailed work rows
	FlowWorkList Flow = "worklist"
)

// headerRowOffset converts a zero-based data row index into the 1-based
// sheet row the user sees, accounting for the header row.
const headerRowOffset = 2

// RowError reports one rejected row. Row is the 1-based sheet position;
// batch-level faults carry no row and omit the field.
type RowError struct {
	Row     int    `json:"row,omitempty"`
	Message string `json:"message"`
}

func (e RowError) Error() string {
	if e.Row == 0 {
		return e.Message
	}
	return fmt.Sprintf("row %d: %s", e.Row, e.Message)
}

// Snapshot is the pre-import state of the collections the reconciler
// matches against.
type Snapshot struct {
	Contracts []storage.Record
	Works     []storage.Record
	Partners  []storage.Record
	Channels  []storage.Record
}

// Result is the three-way partition of an import batch, plus the Partner,
// Channel and Work upserts derived from the contract rows.
type Result struct {
	NewContracts     []storage.Record
	UpdatedContracts []storage.Record
	NewWorks         []storage.Record
	UpdatedWorks     []storage.Record
	NewPartners      []storage.Record
	UpdatedPartners  []storage.Record
	NewChannels      []storage.Record
	Errors           []RowError
}

// mandatoryFields per flow. A row missing any of these is rejected with a
// row-level error and excluded from both output sets.
var mandatoryFields = map[Flow][]string{
	FlowInfo: {FieldSequenceNo, FieldCategory, FieldSignDate, FieldContractNo},
	FlowWorkList: {FieldSequenceNo, FieldCategory, FieldSignDate, FieldContractNo,
		FieldWorkCode, FieldWorkTitle, FieldAuthorName, FieldStartDate, FieldEndDate, FieldFormatType},
}

// mandatoryLabels names the fields in row error messages the way the sheet
// columns name them.
var mandatoryLabels = map[string]string{
	FieldSequenceNo: "STT",
	FieldCategory:   "Phân loại",
	FieldSignDate:   "Ngày ký",
	FieldContractNo: "Số hợp đồng",
	FieldWorkCode:   "Mã tác phẩm",
	FieldWorkTitle:  "Tên tác phẩm",
	FieldAuthorName: "Tác giả",
	FieldStartDate:  "Ngày bắt đầu",
	FieldEndDate:    "Ngày kết thúc",
	FieldFormatType: "Định dạng",
}

// Reconciler partitions import batches against the current collection state.
type Reconciler struct {
	logger *zap.Logger
}

// NewReconciler creates a reconciler.
func NewReconciler(logger *zap.Logger) *Reconciler {
	return &Reconciler{logger: logger.Named("importer.reconcile")}
}

// businessKey identifies "the same real-world contract" across batches.
// The disambiguating third component depends on the flow: channel for the
// metadata sheet, work code for the work list sheet.
func businessKey(flow Flow, fields map[string]string) string {
	third := fields[FieldChannelID]
	if flow == FlowWorkList {
		third = fields[FieldWorkCode]
	}
	return strings.Join([]string{fields[FieldContractNo], fields[FieldAddendumNo], third}, "|")
}

func recordBusinessKey(flow Flow, rec storage.Record) string {
	third := rec.String("channelID")
	if flow == FlowWorkList {
		third = rec.String("workCode")
	}
	return strings.Join([]string{rec.String("contractNo"), rec.String("addendumNo"), third}, "|")
}

// pending tracks, per business key, the in-flight record a later row with
// the same key must be folded into rather than inserted twice.
type pending struct {
	rec   storage.Record
	isNew bool
}

// acceptedRow is a normalized row that passed validation, flagged with
// whether it produced a brand-new contract. Aggregate derivation only
// counts rows for new contracts.
type acceptedRow struct {
	fields map[string]string
	isNew  bool
}

// Reconcile partitions rows into new records, updates and per-row errors,
// then derives the Partner/Channel/Work upserts. Row-level problems never
// abort the batch.
func (r *Reconciler) Reconcile(flow Flow, rows []map[string]string, snap Snapshot) *Result {
	result := &Result{}

	existingByKey := make(map[string]storage.Record, len(snap.Contracts))
	for _, rec := range snap.Contracts {
		existingByKey[recordBusinessKey(flow, rec)] = rec
	}

	seen := make(map[string]*pending)
	accepted := make([]acceptedRow, 0, len(rows))

	for i, raw := range rows {
		fields := NormalizeRow(raw)

		if missing := missingMandatory(flow, fields); len(missing) > 0 {
			result.Errors = append(result.Errors, RowError{
				Row:     i + headerRowOffset,
				Message: fmt.Sprintf("thiếu trường bắt buộc: %s", strings.Join(missing, ", ")),
			})
			continue
		}

		key := businessKey(flow, fields)

		if p, ok := seen[key]; ok {
			// Same key earlier in this batch: fold into that record.
			p.rec.Merge(contractFields(fields))
			accepted = append(accepted, acceptedRow{fields: fields})
			continue
		}

		if existing, ok := existingByKey[key]; ok {
			update := storage.Record{"id": existing.ID()}
			update.Merge(contractFields(fields))
			result.UpdatedContracts = append(result.UpdatedContracts, update)
			seen[key] = &pending{rec: update}
			accepted = append(accepted, acceptedRow{fields: fields})
			continue
		}

		fresh := contractFields(fields)
		fresh["id"] = uuid.NewString()
		result.NewContracts = append(result.NewContracts, fresh)
		seen[key] = &pending{rec: fresh, isNew: true}
		accepted = append(accepted, acceptedRow{fields: fields, isNew: true})
	}

	r.deriveWorks(flow, accepted, snap.Works, result)
	r.derivePartners(accepted, snap.Partners, result)
	r.deriveChannels(accepted, snap.Channels, result)

	r.logger.Debug("batch reconciled",
		zap.String("flow", string(flow)),
		zap.Int("rows", len(rows)),
		zap.Int("new", len(result.NewContracts)),
		zap.Int("updated", len(result.UpdatedContracts)),
		zap.Int("errors", len(result.Errors)))

	return result
}

func missingMandatory(flow Flow, fields map[string]string) []string {
	var missing []string
	for _, f := range mandatoryFields[flow] {
		if fields[f] == "" {
			missing = append(missing, mandatoryLabels[f])
		}
	}
	return missing
}

// contractFields builds the contract record payload from a normalized row.
func contractFields(fields map[string]string) storage.Record {
	rec := storage.Record{}
	for _, f := range []string{
		FieldSequenceNo, FieldCategory, FieldSignDate, FieldContractNo, FieldAddendumNo,
		FieldChannelID, FieldPartnerName, FieldWorkTitle, FieldAuthorName, FieldWorkCode,
		FieldFormatType, FieldStartDate, FieldEndDate, FieldRoyaltyAmount, FieldStatus,
	} {
		if v, ok := fields[f]; ok && v != "" {
			rec[f] = v
		}
	}
	return rec
}

// deriveWorks maintains the per-work running aggregates. Only rows that
// produced a NEW contract count: an updated contract was already part of
// the aggregate when it was first imported.
func (r *Reconciler) deriveWorks(flow Flow, accepted []acceptedRow, existing []storage.Record, result *Result) {
	if flow != FlowWorkList {
		return
	}

	byCode := make(map[string]storage.Record, len(existing))
	for _, rec := range existing {
		byCode[rec.String("code")] = rec
	}

	pendingWorks := make(map[string]*pending)
	for _, row := range accepted {
		code := row.fields[FieldWorkCode]
		if code == "" {
			continue
		}
		revenue := parseRevenue(row.fields[FieldRoyaltyAmount])

		if p, ok := pendingWorks[code]; ok {
			if row.isNew {
				bumpAggregates(p.rec, "totalContracts", "totalRevenue", 1, revenue)
			}
			continue
		}

		if work, ok := byCode[code]; ok {
			if !row.isNew {
				continue
			}
			update := storage.Record{
				"id":             work.ID(),
				"totalContracts": asInt(work["totalContracts"]) + 1,
				"totalRevenue":   asDecimal(work["totalRevenue"]).Add(revenue).InexactFloat64(),
			}
			result.UpdatedWorks = append(result.UpdatedWorks, update)
			pendingWorks[code] = &pending{rec: update}
			continue
		}

		fresh := storage.Record{
			"code":       code,
			"title":      row.fields[FieldWorkTitle],
			"authorName": row.fields[FieldAuthorName],
			"formatType": row.fields[FieldFormatType],
			"startDate":  row.fields[FieldStartDate],
			"endDate":    row.fields[FieldEndDate],
		}
		if row.isNew {
			fresh["totalContracts"] = int64(1)
			fresh["totalRevenue"] = revenue.InexactFloat64()
		} else {
			fresh["totalContracts"] = int64(0)
			fresh["totalRevenue"] = float64(0)
		}
		result.NewWorks = append(result.NewWorks, fresh)
		pendingWorks[code] = &pending{rec: fresh, isNew: true}
	}
}

// derivePartners synthesizes new partners and bumps the running contract
// count and revenue for known ones.
func (r *Reconciler) derivePartners(accepted []acceptedRow, existing []storage.Record, result *Result) {
	byName := make(map[string]storage.Record, len(existing))
	for _, rec := range existing {
		byName[rec.String("tenDonVi")] = rec
	}

	pendingPartners := make(map[string]*pending)
	for _, row := range accepted {
		name := row.fields[FieldPartnerName]
		if name == "" {
			continue
		}
		revenue := parseRevenue(row.fields[FieldRoyaltyAmount])

		if p, ok := pendingPartners[name]; ok {
			if row.isNew {
				bumpAggregates(p.rec, "soHopDongDaKy", "tongDoanhThu", 1, revenue)
			}
			continue
		}

		if partner, ok := byName[name]; ok {
			if !row.isNew {
				continue
			}
			update := storage.Record{
				"id":            partner.ID(),
				"soHopDongDaKy": asInt(partner["soHopDongDaKy"]) + 1,
				"tongDoanhThu":  asDecimal(partner["tongDoanhThu"]).Add(revenue).InexactFloat64(),
			}
			result.UpdatedPartners = append(result.UpdatedPartners, update)
			pendingPartners[name] = &pending{rec: update}
			continue
		}

		// A partner name the collection has never seen gets a record even
		// when the contract row itself is an update.
		fresh := storage.Record{"tenDonVi": name}
		if row.isNew {
			fresh["soHopDongDaKy"] = int64(1)
			fresh["tongDoanhThu"] = revenue.InexactFloat64()
		} else {
			fresh["soHopDongDaKy"] = int64(0)
			fresh["tongDoanhThu"] = float64(0)
		}
		result.NewPartners = append(result.NewPartners, fresh)
		pendingPartners[name] = &pending{rec: fresh, isNew: true}
	}
}

// deriveChannels synthesizes a channel record for every channel id not yet
// known. Channels carry no aggregates.
func (r *Reconciler) deriveChannels(accepted []acceptedRow, existing []storage.Record, result *Result) {
	known := make(map[string]bool, len(existing))
	for _, rec := range existing {
		known[rec.String("channelID")] = true
	}

	for _, row := range accepted {
		id := row.fields[FieldChannelID]
		if id == "" || known[id] {
			continue
		}
		known[id] = true
		result.NewChannels = append(result.NewChannels, storage.Record{
			"channelID": id,
			"name":      row.fields[FieldChannelName],
		})
	}
}

// bumpAggregates increments a pending record's count and revenue fields in place.
func bumpAggregates(rec storage.Record, countField, revenueField string, n int64, revenue decimal.Decimal) {
	rec[countField] = asInt(rec[countField]) + n
	rec[revenueField] = asDecimal(rec[revenueField]).Add(revenue).InexactFloat64()
}

// parseRevenue reads a formatted VND amount ("1.000.000 đ", "1,5 triệu" is
// out of scope) into a decimal. Unparseable values count as zero rather
// than failing the row.
func parseRevenue(s string) decimal.Decimal {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero
	}
	s = strings.NewReplacer("đ", "", "Đ", "", "VND", "", "vnd", "", " ", "").Replace(s)
	// Vietnamese formatting: dots group thousands, comma is the decimal mark.
	s = strings.ReplaceAll(s, ".", "")
	s = strings.ReplaceAll(s, ",", ".")
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func asInt(v any) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case int:
		return int64(n)
	case float64:
		return int64(n)
	default:
		return 0
	}
}

func asDecimal(v any) decimal.Decimal {
	switch n := v.(type) {
	case float64:
		return decimal.NewFromFloat(n)
	case int64:
		return decimal.NewFromInt(n)
	case string:
		if d, err := decimal.NewFromString(n); err == nil {
			return d
		}
	}
	return decimal.Zero
}
