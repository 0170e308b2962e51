package storage

import (
	"fmt"

	"github.com/stevedao0/newcm-sub000/internal/common/cnst"
)

// fieldTables maps, per collection, every application field name (camelCase)
// to its storage column name (snake_case). The tables are explicit rather
// than derived so that tricky names (channelID, sequenceNo, Vietnamese
// business fields) translate the same way in both directions.
var fieldTables = map[string]map[string]string{
	cnst.CollectionContracts: {
		"id":            "id",
		"sequenceNo":    "sequence_no",
		"contractNo":    "contract_no",
		"addendumNo":    "addendum_no",
		"channelID":     "channel_id",
		"category":      "category",
		"partnerName":   "partner_name",
		"workTitle":     "work_title",
		"authorName":    "author_name",
		"workCode":      "work_code",
		"formatType":    "format_type",
		"signDate":      "sign_date",
		"startDate":     "start_date",
		"endDate":       "end_date",
		"royaltyAmount": "royalty_amount",
		"status":        "status",
		"createdAt":     "created_at",
		"updatedAt":     "updated_at",
	},
	cnst.CollectionWorks: {
		"id":             "id",
		"code":           "code",
		"title":          "title",
		"authorName":     "author_name",
		"formatType":     "format_type",
		"startDate":      "start_date",
		"endDate":        "end_date",
		"totalContracts": "total_contracts",
		"totalRevenue":   "total_revenue",
		"createdAt":      "created_at",
		"updatedAt":      "updated_at",
	},
	cnst.CollectionPartners: {
		"id":            "id",
		"tenDonVi":      "ten_don_vi",
		"diaChi":        "dia_chi",
		"maSoThue":      "ma_so_thue",
		"soHopDongDaKy": "so_hop_dong_da_ky",
		"tongDoanhThu":  "tong_doanh_thu",
		"createdAt":     "created_at",
		"updatedAt":     "updated_at",
	},
	cnst.CollectionChannels: {
		"id":        "id",
		"channelID": "channel_id",
		"name":      "name",
		"createdAt": "created_at",
		"updatedAt": "updated_at",
	},
	cnst.CollectionUsers: {
		"id":        "id",
		"username":  "username",
		"fullName":  "full_name",
		"email":     "email",
		"role":      "role",
		"status":    "status",
		"createdAt": "created_at",
		"updatedAt": "updated_at",
	},
}

// columnTables is the reverse of fieldTables, built once at init.
var columnTables = func() map[string]map[string]string {
	out := make(map[string]map[string]string, len(fieldTables))
	for collection, fields := range fieldTables {
		rev := make(map[string]string, len(fields))
		for app, col := range fields {
			if prev, dup := rev[col]; dup {
				panic(fmt.Sprintf("storage: collection %s: column %s mapped from both %s and %s",
					collection, col, prev, app))
			}
			rev[col] = app
		}
		out[collection] = rev
	}
	return out
}()

// ToStorageName translates an application field name to its storage column name.
func ToStorageName(collection, field string) (string, error) {
	fields, ok := fieldTables[collection]
	if !ok {
		return "", fmt.Errorf("%w: %s", cnst.ErrUnknownCollection, collection)
	}
	col, ok := fields[field]
	if !ok {
		return "", fmt.Errorf("%w: %s.%s", cnst.ErrUnknownField, collection, field)
	}
	return col, nil
}

// ToAppName translates a storage column name back to its application field name.
func ToAppName(collection, column string) (string, error) {
	cols, ok := columnTables[collection]
	if !ok {
		return "", fmt.Errorf("%w: %s", cnst.ErrUnknownCollection, collection)
	}
	field, ok := cols[column]
	if !ok {
		return "", fmt.Errorf("%w: %s.%s", cnst.ErrUnknownField, collection, column)
	}
	return field, nil
}

// AppFields returns every application field name known for the collection.
func AppFields(collection string) []string {
	fields := fieldTables[collection]
	out := make([]string, 0, len(fields))
	for f := range fields {
		out = append(out, f)
	}
	return out
}
