package chat

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/lethanhdat107/govivu/internal/models"
)

// maxContextTours caps how many storefront tours are quoted in the system turn.
const maxContextTours = 5

// Users referring to "this month" within the first couple of days usually mean
// the period that just ended.
const monthBoundaryDays = 2

var explicitMonthPattern = regexp.MustCompile(`thang\s*(\d{1,2})`)

var nextMonthPhrases = []string{"thang sau", "thang toi", "thang ke tiep"}

var thisMonthPhrases = []string{"thang nay", "trong thang"}

// TargetMonth infers which month and year the user is asking about. The
// message must already be folded with Normalize.
func TargetMonth(folded string, now time.Time) (int, int) {
	if match := explicitMonthPattern.FindStringSubmatch(folded); match != nil {
		if n, err := strconv.Atoi(match[1]); err == nil && n >= 1 && n <= 12 {
			return n, now.Year()
		}
	}

	for _, phrase := range nextMonthPhrases {
		if strings.Contains(folded, phrase) {
			next := now.Month()%12 + 1
			year := now.Year()
			if next == 1 {
				year++
			}
			return int(next), year
		}
	}

	for _, phrase := range thisMonthPhrases {
		if strings.Contains(folded, phrase) {
			if now.Day() <= monthBoundaryDays {
				prev := now.AddDate(0, -1, 0)
				return int(prev.Month()), prev.Year()
			}
			return int(now.Month()), now.Year()
		}
	}

	return int(now.Month()), now.Year()
}

// BuildSystemTurn writes the assistant persona, the inferred month, the
// current tour list and the output-style rules into one system turn.
func BuildSystemTurn(month, year int, tours []models.TourSummary) models.Turn {
	var b strings.Builder
	b.WriteString("Bạn là trợ lý du lịch của GoViVu, chỉ tư vấn về tour, khách sạn và kinh nghiệm du lịch tại Việt Nam.\n")
	fmt.Fprintf(&b, "Khách đang quan tâm tới tháng %d năm %d.\n", month, year)

	if len(tours) == 0 {
		b.WriteString("Hiện tại chưa có tour nào đang mở bán, hãy tư vấn kinh nghiệm du lịch chung và mời khách quay lại sau.\n")
	} else {
		b.WriteString("Các tour đang mở bán:\n")
		for _, tour := range tours {
			fmt.Fprintf(&b, "- %s (giá %.0f VND)\n", tour.Title, tour.Price)
		}
	}

	b.WriteString("Quy tắc trả lời:\n")
	b.WriteString("- Trả lời thân thiện, dài 2-4 câu và kết thúc bằng một emoji.\n")
	b.WriteString("- Ưu tiên gợi ý các tour trong danh sách trên nếu phù hợp với câu hỏi.\n")
	b.WriteString("- Nếu không có tour phù hợp, tư vấn kinh nghiệm du lịch chung thay vì từ chối.")

	return models.Turn{Role: models.RoleSystem, Content: b.String()}
}

// BuildTurns assembles the full sequence sent to a provider. Anonymous
// callers get no memory: just the system turn and their message.
func BuildTurns(system models.Turn, history []models.Turn, message string, authenticated bool) []models.Turn {
	turns := make([]models.Turn, 0, len(history)+2)
	turns = append(turns, system)
	if authenticated {
		turns = append(turns, history...)
	}
	turns = append(turns, models.Turn{Role: models.RoleUser, Content: message})
	return turns
}
