package chat

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Replies returned by the guard without touching cache, history or providers.
const (
	RedirectReply = "Xin lỗi, mình là trợ lý du lịch của GoViVu nên chỉ hỗ trợ được các câu hỏi về tour, khách sạn và kinh nghiệm du lịch thôi. Bạn muốn tìm hiểu chuyến đi nào không? 🌴"
	PromoReply    = "GoViVu là nền tảng đặt tour và khách sạn trực tuyến: bạn có thể xem tour theo tháng, so sánh giá khách sạn, đặt chỗ và thanh toán ngay trên web. Bạn cứ hỏi mình về điểm đến bạn thích nhé! ✈️"
)

// Normalize lower-cases text and strips Vietnamese diacritics so that
// accented and unaccented spellings compare equal. The transformer chain is
// built per call; chained transformers carry state and are not shareable.
func Normalize(s string) string {
	fold := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	lowered := strings.ToLower(strings.TrimSpace(s))
	folded, _, err := transform.String(fold, lowered)
	if err != nil {
		folded = lowered
	}
	// đ is a standalone letter, not a combining form, so NFD leaves it alone.
	folded = strings.ReplaceAll(folded, "đ", "d")
	return folded
}

// Off-domain topics the assistant refuses to discuss. Phrases are stored in
// folded form and matched as substrings of the folded message.
var denyPhrases = []string{
	// sports
	"bong da", "the thao", "world cup", "cau thu",
	// technology
	"lap trinh", "may tinh", "dien thoai", "cong nghe", "phan mem",
	// entertainment
	"phim", "ca si", "am nhac", "bai hat", "game", "idol",
	// food preparation
	"nau an", "cong thuc nau", "cach lam mon",
	// academic subjects
	"toan hoc", "vat ly", "hoa hoc", "van hoc", "tieng anh lop",
	// vehicles
	"xe may", "xe o to", "xe hoi",
	// politics and religion
	"chinh tri", "ton giao", "bau cu", "dang phai",
	// health
	"suc khoe", "benh vien", "uong thuoc", "bac si",
	// relationships
	"tinh yeu", "chia tay", "ban gai", "ban trai",
	// questions about the assistant itself
	"ban la ai", "ai tao ra ban", "chatgpt", "openai", "gpt",
}

// Friendly "what does this site do" phrasings that get the promo reply.
var promoPhrases = []string{
	"web nay ban gi",
	"trang web nay ban gi",
	"website nay la gi",
	"trang web nay la gi",
	"web cua ban co gi",
	"ben ban co dich vu gi",
}

// Classification is the guard verdict for one raw message.
type Classification struct {
	InDomain      bool
	ShortcutReply string
}

// Classify decides whether a message stays in the travel domain. It is a pure
// function of the folded text: same input, same verdict.
func Classify(raw string) Classification {
	folded := Normalize(raw)

	for _, phrase := range denyPhrases {
		if strings.Contains(folded, phrase) {
			return Classification{InDomain: false, ShortcutReply: RedirectReply}
		}
	}

	for _, phrase := range promoPhrases {
		if strings.Contains(folded, phrase) {
			return Classification{InDomain: true, ShortcutReply: PromoReply}
		}
	}

	return Classification{InDomain: true}
}
