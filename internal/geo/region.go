package geo

import (
	"regexp"
	"strings"
)

// Provinces is the closed list of first-level administrative regions,
// in canonical short form.
var Provinces = []string{
	"서울", "부산", "대구", "인천", "광주", "대전", "울산", "세종",
	"경기", "강원", "충북", "충남", "전북", "전남", "경북", "경남", "제주",
}

// provinceLongForms maps official names that do not contain their short
// form as a substring.
var provinceLongForms = map[string]string{
	"충청북도": "충북",
	"충청남도": "충남",
	"전라북도": "전북",
	"전라남도": "전남",
	"경상북도": "경북",
	"경상남도": "경남",
}

var provincePattern = buildProvincePattern()

// districtPattern mirrors the 시/구/군 suffix rule; alternation order
// matters because Go regexps prefer the leftmost alternative.
var districtPattern = regexp.MustCompile(`[가-힣]+시|[가-힣]+구|[가-힣]+군`)

// metroSuffixes mark first-level regions that also end in 시.
var metroSuffixes = []string{"특별자치시", "특별시", "광역시"}

func buildProvincePattern() *regexp.Regexp {
	alts := make([]string, 0, len(provinceLongForms)+len(Provinces))
	// Long forms first so they win at the same starting offset.
	for _, long := range []string{"충청북도", "충청남도", "전라북도", "전라남도", "경상북도", "경상남도"} {
		alts = append(alts, regexp.QuoteMeta(long))
	}
	for _, p := range Provinces {
		alts = append(alts, regexp.QuoteMeta(p))
	}
	return regexp.MustCompile(strings.Join(alts, "|"))
}

// ExtractProvince returns the first province named in addr, in canonical
// short form, or "" when none is found.
func ExtractProvince(addr string) string {
	m := provincePattern.FindString(addr)
	if m == "" {
		return ""
	}
	if short, ok := provinceLongForms[m]; ok {
		return short
	}
	return m
}

// ExtractDistrict returns the first city, district, or county token in
// addr. Tokens naming a metropolitan first-level region are skipped.
func ExtractDistrict(addr string) string {
	for _, m := range districtPattern.FindAllString(addr, -1) {
		if isMetro(m) {
			continue
		}
		return m
	}
	return ""
}

func isMetro(token string) bool {
	for _, s := range metroSuffixes {
		if strings.HasSuffix(token, s) {
			return true
		}
	}
	return false
}

// IsProvince reports whether name is one of the canonical provinces.
func IsProvince(name string) bool {
	for _, p := range Provinces {
		if p == name {
			return true
		}
	}
	return false
}
