package models

import "sort"

// FreeReportType is the report type every domain serves without payment
const FreeReportType = "base"

// ReportType describes one report a domain can generate
type ReportType struct {
	Key           string   `json:"key"`
	OrderName     string   `json:"order_name"`
	Endpoint      string   `json:"-"`
	Price         int      `json:"price"`
	SectionTitles []string `json:"section_titles,omitempty"`
	Retries       int      `json:"-"` // remote call retries; most types never retry
}

// Domain is one feature area with its own logical record store
type Domain struct {
	Name     string       `json:"name"`
	Store    string       `json:"store"`
	FreeType string       `json:"free_type"`
	Types    []ReportType `json:"types"`
}

// ReportType looks up a report type by key
func (d Domain) ReportType(key string) (ReportType, bool) {
	for _, t := range d.Types {
		if t.Key == key {
			return t, true
		}
	}
	return ReportType{}, false
}

// Keys returns the report type keys in catalog order
func (d Domain) Keys() []string {
	keys := make([]string, 0, len(d.Types))
	for _, t := range d.Types {
		keys = append(keys, t.Key)
	}
	return keys
}

// IsFree reports whether the type bypasses the paywall
func (d Domain) IsFree(key string) bool {
	return key == d.FreeType
}

var catalog = map[string]Domain{
	"face": {
		Name:     "face",
		Store:    "face_analysis",
		FreeType: FreeReportType,
		Types: []ReportType{
			{Key: "base", OrderName: "관상 상세 분석 서비스", Endpoint: "face-teller2/"},
			{
				Key: "wealth", OrderName: "관상 재물운 상세 분석 보고서", Endpoint: "analyze/wealth", Price: 6900,
				SectionTitles: []string{
					"들어가며 – 관상 재물 분석의 의미",
					"타고난 부와 평생 모을 재산",
					"성향과 재물운의 강·약점",
					"돈이 붙는 적성과 환경",
					"자산을 키울 골든타임",
					"위기 징조와 예방책",
					"관상 개선 실천법",
					"관상가 양반의 인생 조언",
				},
			},
			{
				Key: "love", OrderName: "관상 연애운 상세 분석 보고서", Endpoint: "analyze/love", Price: 6900,
				SectionTitles: []string{
					"들어가며 – 운명 사랑 나침반",
					"총 연애 횟수 & 나의 사랑 사이클",
					"운명 상대는 지금 어느 동네에?",
					"사랑이 피어나는 계절·장소 & 개운 액션",
					"이상형 스펙 & 첫눈에 끌어당김 스킬",
					"강점·약점 체크 & 사랑 체력 보충법",
					"오래 가는 연애 루틴 & 갈등 해소 키",
				},
			},
			{
				Key: "marriage", OrderName: "관상 결혼운 상세 분석 보고서", Endpoint: "analyze/marriage", Price: 6900,
				SectionTitles: []string{
					"들어가며 – 결혼 로드맵",
					"연애 성향·결혼관",
					"골든타임 & 만남 스폿",
					"이상적 배우자·끌어당김",
					"결혼 생활·갈등 키워드",
					"관상 개선·실천 체크",
				},
			},
			{
				Key: "career", OrderName: "관상 직업운 상세 분석 보고서", Endpoint: "analyze/career", Price: 6900,
				SectionTitles: []string{
					"들어가며 – 커리어 나침반 지도",
					"적성과 장단점 – 천직 레이더",
					"직업 운 곡선 & 전환점 타임라인",
					"강점 극대화 – 퍼스널 브랜딩 레버",
					"직장 vs 창업 – 베스트 시나리오",
					"행운의 업무 환경 – 공간·도시·사람",
					"위기 대비 체크 – 리스크 레이더",
					"관상 개선 실천법 – 아침·저녁 루틴",
				},
			},
			{Key: "health", OrderName: "관상 건강운 상세 분석 보고서", Endpoint: "analyze/health", Price: 6900},
		},
	},
	"couple": {
		Name:     "couple",
		Store:    "couple_analysis",
		FreeType: FreeReportType,
		Types: []ReportType{
			{Key: "base", OrderName: "AI 커플 궁합 점수", Endpoint: "analyze/couple/score"},
			{Key: "couple", OrderName: "AI 커플 궁합 관상 보고서", Endpoint: "analyze/couple/report", Price: 7900},
		},
	},
	"saju-love": {
		Name:     "saju-love",
		Store:    "saju_love",
		FreeType: FreeReportType,
		Types: []ReportType{
			{Key: "base", OrderName: "연애 사주 미리보기", Endpoint: "saju_love/base"},
			{Key: "love", OrderName: "AI 연애 사주 심층 분석", Endpoint: "saju_love/analyze", Price: 9900},
		},
	},
	"new-year": {
		Name:     "new-year",
		Store:    "new_year",
		FreeType: FreeReportType,
		Types: []ReportType{
			{Key: "base", OrderName: "2026 신년 운세 미리보기", Endpoint: "new_year/base"},
			{Key: "fortune", OrderName: "AI 2026 신년 운세 심층 분석", Endpoint: "new_year/analyze", Price: 9900, Retries: 2},
		},
	},
}

// LookupDomain returns the catalog entry for a domain name
func LookupDomain(name string) (Domain, bool) {
	d, ok := catalog[name]
	return d, ok
}

// Domains returns every domain sorted by name
func Domains() []Domain {
	out := make([]Domain, 0, len(catalog))
	for _, d := range catalog {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// RequiresImage reports whether records in the domain are seeded from a face photo
func (d Domain) RequiresImage() bool {
	return d.Name == "face" || d.Name == "couple"
}
