package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLookupColumn(t *testing.T) {
	tests := []struct {
		header string
		want   Column
		ok     bool
	}{
		{"위도", ColLatitudeAlias, true},
		{"latitude", ColLatitude, true},
		{"사업자등록번호", ColBusinessRegID, true},
		{"산업코드 대분류", ColIndustryMajor, true},
		{"sido", ColProvince, true},
		{"province", ColProvince, true},
		{"시군구", ColDistrict, true},
		{"비고", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.header, func(t *testing.T) {
			got, ok := LookupColumn(tt.header)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNewSchema(t *testing.T) {
	s := NewSchema([]string{"위도", "경도", "한글업체명", "unknown", "district"})

	assert.True(t, s.Has(ColLatitudeAlias))
	assert.True(t, s.Has(ColLongitudeAlias))
	assert.True(t, s.Has(ColName))
	assert.True(t, s.Has(ColDistrict))
	assert.False(t, s.Has(ColCreditRating))
	assert.Equal(t, []Column{ColLatitudeAlias, ColLongitudeAlias, ColName, ColDistrict}, s.Columns())
}

func TestSchemaClone(t *testing.T) {
	s := NewSchema([]string{"업종명"})
	c := s.Clone()
	c[ColCreditRating] = true

	assert.False(t, s.Has(ColCreditRating))
	assert.True(t, c.Has(ColIndustryName))
}

func TestRawRowField(t *testing.T) {
	var r RawRow
	for _, col := range KnownColumns {
		p := r.Field(col)
		if assert.NotNil(t, p, string(col)) {
			*p = string(col)
		}
	}
	assert.Equal(t, "위도", r.LatitudeAlias)
	assert.Equal(t, "전화번호", r.Phone)
	assert.Equal(t, "sigungu", r.District)
	assert.Nil(t, r.Field("nope"))
}

func TestRecordValue(t *testing.T) {
	r := Record{
		Latitude:     37.5,
		Name:         "가나상사",
		SizeClass:    "중소기업",
		IndustryName: "제조업",
		Province:     "서울",
	}
	assert.Equal(t, "가나상사", r.Value(ColName))
	assert.Equal(t, "중소기업", r.Value(ColSizeClass))
	assert.Equal(t, "제조업", r.Value(ColIndustryName))
	assert.Equal(t, "서울", r.Value(ColProvince))
	assert.Equal(t, "", r.Value(ColLatitude))
}
