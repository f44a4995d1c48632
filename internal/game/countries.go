package game

// Country is one entry of the fixed flag catalogue used to build
// Memory decks. The catalogue is process-wide and read-only.
type Country struct {
	Key    string
	Flag   string
	NameKo string
}

// Countries is the flag catalogue. Decks draw cardCount/2 distinct
// entries, so it must stay at least 30 entries long.
var Countries = []Country{
	{"kr", "🇰🇷", "대한민국"},
	{"us", "🇺🇸", "미국"},
	{"jp", "🇯🇵", "일본"},
	{"cn", "🇨🇳", "중국"},
	{"gb", "🇬🇧", "영국"},
	{"fr", "🇫🇷", "프랑스"},
	{"de", "🇩🇪", "독일"},
	{"it", "🇮🇹", "이탈리아"},
	{"es", "🇪🇸", "스페인"},
	{"ca", "🇨🇦", "캐나다"},
	{"au", "🇦🇺", "호주"},
	{"br", "🇧🇷", "브라질"},
	{"mx", "🇲🇽", "멕시코"},
	{"in", "🇮🇳", "인도"},
	{"ru", "🇷🇺", "러시아"},
	{"nl", "🇳🇱", "네덜란드"},
	{"ch", "🇨🇭", "스위스"},
	{"se", "🇸🇪", "스웨덴"},
	{"no", "🇳🇴", "노르웨이"},
	{"fi", "🇫🇮", "핀란드"},
	{"dk", "🇩🇰", "덴마크"},
	{"pl", "🇵🇱", "폴란드"},
	{"pt", "🇵🇹", "포르투갈"},
	{"gr", "🇬🇷", "그리스"},
	{"tr", "🇹🇷", "튀르키예"},
	{"th", "🇹🇭", "태국"},
	{"vn", "🇻🇳", "베트남"},
	{"ph", "🇵🇭", "필리핀"},
	{"id", "🇮🇩", "인도네시아"},
	{"my", "🇲🇾", "말레이시아"},
	{"sg", "🇸🇬", "싱가포르"},
	{"nz", "🇳🇿", "뉴질랜드"},
	{"ar", "🇦🇷", "아르헨티나"},
	{"cl", "🇨🇱", "칠레"},
	{"co", "🇨🇴", "콜롬비아"},
	{"pe", "🇵🇪", "페루"},
	{"eg", "🇪🇬", "이집트"},
	{"za", "🇿🇦", "남아프리카 공화국"},
	{"ng", "🇳🇬", "나이지리아"},
	{"ke", "🇰🇪", "케냐"},
}
