package storage

import "time"

// Migration models for the remote backend. Column names must match the
// storage side of the naming tables; the map-based read/write path goes
// through those tables, these structs only drive AutoMigrate.

// ContractModel corresponds to the contracts table.
type ContractModel struct {
	ID            string `gorm:"column:id;primaryKey;type:varchar(64)"`
	SequenceNo    string `gorm:"column:sequence_no;type:varchar(32)"`
	ContractNo    string `gorm:"column:contract_no;type:varchar(128);index"`
	AddendumNo    string `gorm:"column:addendum_no;type:varchar(128)"`
	ChannelID     string `gorm:"column:channel_id;type:varchar(64);index"`
	Category      string `gorm:"column:category;type:varchar(128)"`
	PartnerName   string `gorm:"column:partner_name;type:varchar(255);index"`
	WorkTitle     string `gorm:"column:work_title;type:varchar(255)"`
	AuthorName    string `gorm:"column:author_name;type:varchar(255)"`
	WorkCode      string `gorm:"column:work_code;type:varchar(128);index"`
	FormatType    string `gorm:"column:format_type;type:varchar(64)"`
	SignDate      string `gorm:"column:sign_date;type:varchar(32)"`
	StartDate     string `gorm:"column:start_date;type:varchar(32)"`
	EndDate       string `gorm:"column:end_date;type:varchar(32)"`
	RoyaltyAmount string `gorm:"column:royalty_amount;type:varchar(64)"`
	Status        string `gorm:"column:status;type:varchar(32)"`

	CreatedAt time.Time `gorm:"column:created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

func (ContractModel) TableName() string { return "contracts" }

// WorkModel corresponds to the works table. TotalContracts and TotalRevenue
// are running aggregates maintained incrementally by the import flow.
type WorkModel struct {
	ID             string  `gorm:"column:id;primaryKey;type:varchar(64)"`
	Code           string  `gorm:"column:code;type:varchar(128);index"`
	Title          string  `gorm:"column:title;type:varchar(255)"`
	AuthorName     string  `gorm:"column:author_name;type:varchar(255)"`
	FormatType     string  `gorm:"column:format_type;type:varchar(64)"`
	StartDate      string  `gorm:"column:start_date;type:varchar(32)"`
	EndDate        string  `gorm:"column:end_date;type:varchar(32)"`
	TotalContracts int64   `gorm:"column:total_contracts"`
	TotalRevenue   float64 `gorm:"column:total_revenue;type:decimal(18,2)"`

	CreatedAt time.Time `gorm:"column:created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

func (WorkModel) TableName() string { return "works" }

// PartnerModel corresponds to the partners table, keyed by organization name.
type PartnerModel struct {
	ID            string  `gorm:"column:id;primaryKey;type:varchar(64)"`
	TenDonVi      string  `gorm:"column:ten_don_vi;type:varchar(255);index"`
	DiaChi        string  `gorm:"column:dia_chi;type:varchar(255)"`
	MaSoThue      string  `gorm:"column:ma_so_thue;type:varchar(64)"`
	SoHopDongDaKy int64   `gorm:"column:so_hop_dong_da_ky"`
	TongDoanhThu  float64 `gorm:"column:tong_doanh_thu;type:decimal(18,2)"`

	CreatedAt time.Time `gorm:"column:created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

func (PartnerModel) TableName() string { return "partners" }

// ChannelModel corresponds to the channels table.
type ChannelModel struct {
	ID        string `gorm:"column:id;primaryKey;type:varchar(64)"`
	ChannelID string `gorm:"column:channel_id;type:varchar(64);index"`
	Name      string `gorm:"column:name;type:varchar(255)"`

	CreatedAt time.Time `gorm:"column:created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

func (ChannelModel) TableName() string { return "channels" }

// UserModel corresponds to the users table. Credentials are out of scope.
type UserModel struct {
	ID       string `gorm:"column:id;primaryKey;type:varchar(64)"`
	Username string `gorm:"column:username;type:varchar(128);index"`
	FullName string `gorm:"column:full_name;type:varchar(255)"`
	Email    string `gorm:"column:email;type:varchar(255)"`
	Role     string `gorm:"column:role;type:varchar(32)"`
	Status   string `gorm:"column:status;type:varchar(32)"`

	CreatedAt time.Time `gorm:"column:created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

func (UserModel) TableName() string { return "users" }

// migrationModels lists every table the remote backend auto-migrates.
var migrationModels = []any{
	&ContractModel{},
	&WorkModel{},
	&PartnerModel{},
	&ChannelModel{},
	&UserModel{},
}
