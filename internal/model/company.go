package model

// Column names a source column of the company dataset. Values are the
// header labels used by the upstream spreadsheet export.
type Column string

const (
	ColLatitude       Column = "latitude"
	ColLongitude      Column = "longitude"
	ColLatitudeAlias  Column = "위도"
	ColLongitudeAlias Column = "경도"

	ColBusinessRegID  Column = "사업자등록번호"
	ColName           Column = "한글업체명"
	ColSizeClass      Column = "기업규모구분"
	ColCreditRating   Column = "신용등급"
	ColCashFlowRating Column = "현금흐름등급"
	ColIndustryName   Column = "업종명"
	ColBusinessType   Column = "업태명"
	ColProducts       Column = "주요상품내역"
	ColIndustryMajor  Column = "산업코드 대분류"
	ColIndustryDetail Column = "산업코드 세세분류"
	ColAddress        Column = "한글주소"
	ColLotAddress     Column = "한글지번주소"
	ColPhone          Column = "전화번호"

	// Region columns. Datasets may ship them precomputed; otherwise they
	// are derived from ColAddress during normalization.
	ColProvince Column = "sido"
	ColDistrict Column = "sigungu"
)

// columnAliases maps alternate header spellings to their canonical column.
var columnAliases = map[string]Column{
	"province": ColProvince,
	"district": ColDistrict,
	"시도":       ColProvince,
	"시군구":      ColDistrict,
}

// KnownColumns lists every column the loader understands, in display order.
var KnownColumns = []Column{
	ColLatitude, ColLongitude, ColLatitudeAlias, ColLongitudeAlias,
	ColBusinessRegID, ColName, ColSizeClass, ColCreditRating, ColCashFlowRating,
	ColIndustryName, ColBusinessType, ColProducts, ColIndustryMajor, ColIndustryDetail,
	ColAddress, ColLotAddress, ColPhone, ColProvince, ColDistrict,
}

// LookupColumn resolves a header label to a known column.
func LookupColumn(header string) (Column, bool) {
	c := Column(header)
	for _, k := range KnownColumns {
		if k == c {
			return c, true
		}
	}
	if alias, ok := columnAliases[header]; ok {
		return alias, true
	}
	return "", false
}

// RawRow is one unvalidated dataset row. Every cell is kept as text; an
// empty string means the cell was blank or the column is missing.
type RawRow struct {
	Latitude       string `csv:"latitude,omitempty"`
	Longitude      string `csv:"longitude,omitempty"`
	LatitudeAlias  string `csv:"위도,omitempty"`
	LongitudeAlias string `csv:"경도,omitempty"`
	BusinessRegID  string `csv:"사업자등록번호,omitempty"`
	Name           string `csv:"한글업체명,omitempty"`
	SizeClass      string `csv:"기업규모구분,omitempty"`
	CreditRating   string `csv:"신용등급,omitempty"`
	CashFlowRating string `csv:"현금흐름등급,omitempty"`
	IndustryName   string `csv:"업종명,omitempty"`
	BusinessType   string `csv:"업태명,omitempty"`
	Products       string `csv:"주요상품내역,omitempty"`
	IndustryMajor  string `csv:"산업코드 대분류,omitempty"`
	IndustryDetail string `csv:"산업코드 세세분류,omitempty"`
	Address        string `csv:"한글주소,omitempty"`
	LotAddress     string `csv:"한글지번주소,omitempty"`
	Phone          string `csv:"전화번호,omitempty"`
	Province       string `csv:"sido,omitempty"`
	District       string `csv:"sigungu,omitempty"`
}

// Field returns a pointer to the cell backing col, or nil for unknown columns.
func (r *RawRow) Field(col Column) *string {
	switch col {
	case ColLatitude:
		return &r.Latitude
	case ColLongitude:
		return &r.Longitude
	case ColLatitudeAlias:
		return &r.LatitudeAlias
	case ColLongitudeAlias:
		return &r.LongitudeAlias
	case ColBusinessRegID:
		return &r.BusinessRegID
	case ColName:
		return &r.Name
	case ColSizeClass:
		return &r.SizeClass
	case ColCreditRating:
		return &r.CreditRating
	case ColCashFlowRating:
		return &r.CashFlowRating
	case ColIndustryName:
		return &r.IndustryName
	case ColBusinessType:
		return &r.BusinessType
	case ColProducts:
		return &r.Products
	case ColIndustryMajor:
		return &r.IndustryMajor
	case ColIndustryDetail:
		return &r.IndustryDetail
	case ColAddress:
		return &r.Address
	case ColLotAddress:
		return &r.LotAddress
	case ColPhone:
		return &r.Phone
	case ColProvince:
		return &r.Province
	case ColDistrict:
		return &r.District
	default:
		return nil
	}
}

// Record is one normalized company. Optional attributes are empty when
// absent and omitted from JSON.
type Record struct {
	Latitude       float64 `json:"latitude" yaml:"latitude"`
	Longitude      float64 `json:"longitude" yaml:"longitude"`
	BusinessRegID  string  `json:"business_registration_id,omitempty" yaml:"business_registration_id,omitempty"`
	Name           string  `json:"name,omitempty" yaml:"name,omitempty"`
	SizeClass      string  `json:"company_size_class,omitempty" yaml:"company_size_class,omitempty"`
	CreditRating   string  `json:"credit_rating,omitempty" yaml:"credit_rating,omitempty"`
	CashFlowRating string  `json:"cash_flow_rating,omitempty" yaml:"cash_flow_rating,omitempty"`
	IndustryName   string  `json:"industry_name,omitempty" yaml:"industry_name,omitempty"`
	BusinessType   string  `json:"business_type,omitempty" yaml:"business_type,omitempty"`
	Products       string  `json:"products,omitempty" yaml:"products,omitempty"`
	IndustryMajor  string  `json:"industry_code_major,omitempty" yaml:"industry_code_major,omitempty"`
	IndustryDetail string  `json:"industry_code_detail,omitempty" yaml:"industry_code_detail,omitempty"`
	Address        string  `json:"address,omitempty" yaml:"address,omitempty"`
	LotAddress     string  `json:"lot_address,omitempty" yaml:"lot_address,omitempty"`
	Phone          string  `json:"phone,omitempty" yaml:"phone,omitempty"`
	Province       string  `json:"province,omitempty" yaml:"province,omitempty"`
	District       string  `json:"district,omitempty" yaml:"district,omitempty"`
}

// Value returns the record's value for a categorical or text column.
// Coordinate columns and unknown columns return "".
func (r *Record) Value(col Column) string {
	switch col {
	case ColBusinessRegID:
		return r.BusinessRegID
	case ColName:
		return r.Name
	case ColSizeClass:
		return r.SizeClass
	case ColCreditRating:
		return r.CreditRating
	case ColCashFlowRating:
		return r.CashFlowRating
	case ColIndustryName:
		return r.IndustryName
	case ColBusinessType:
		return r.BusinessType
	case ColProducts:
		return r.Products
	case ColIndustryMajor:
		return r.IndustryMajor
	case ColIndustryDetail:
		return r.IndustryDetail
	case ColAddress:
		return r.Address
	case ColLotAddress:
		return r.LotAddress
	case ColPhone:
		return r.Phone
	case ColProvince:
		return r.Province
	case ColDistrict:
		return r.District
	default:
		return ""
	}
}

// TextColumns are the record columns searched by free-text queries.
var TextColumns = []Column{
	ColName, ColAddress, ColLotAddress, ColBusinessType, ColProducts,
	ColIndustryName, ColIndustryMajor, ColIndustryDetail, ColPhone,
	ColBusinessRegID, ColSizeClass, ColCreditRating, ColCashFlowRating,
	ColProvince, ColDistrict,
}

// Schema records which columns a dataset carries. It is computed once at
// load time so downstream stages never inspect rows to discover columns.
type Schema map[Column]bool

// NewSchema builds a schema from header labels, ignoring unknown ones.
func NewSchema(headers []string) Schema {
	s := make(Schema, len(headers))
	for _, h := range headers {
		if col, ok := LookupColumn(h); ok {
			s[col] = true
		}
	}
	return s
}

// Has reports whether the dataset carries col.
func (s Schema) Has(col Column) bool {
	return s[col]
}

// Clone returns an independent copy.
func (s Schema) Clone() Schema {
	out := make(Schema, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// Columns returns present columns in KnownColumns order.
func (s Schema) Columns() []Column {
	var out []Column
	for _, c := range KnownColumns {
		if s[c] {
			out = append(out, c)
		}
	}
	return out
}
