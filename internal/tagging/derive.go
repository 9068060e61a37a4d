package tagging

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/Fronut/Picture-management-website/internal/domain"
)

// Фиксированные уверенности кандидатов
const (
	ConfidenceStrong    = 1.00 // пользовательские теги считаются истиной
	ConfidenceAuto      = 0.85 // автоматически выведенные теги
	ConfidenceAIDefault = 0.75 // откат для AI-тегов без валидной уверенности
)

// Candidate — предложенный тег до слияния и сохранения
type Candidate struct {
	Name       string
	Type       domain.TagType
	Confidence float64
}

var whitespaceRun = regexp.MustCompile(`\s+`)

// DeriveAutoTags выводит детерминированный набор кандидатов из
// метаданных и атрибутов изображения: год, месяц, сезон и время суток
// съёмки, камера, место, ориентация и формат. Чистая функция без
// побочных эффектов
func DeriveAutoTags(img *domain.Image, meta *domain.ExifData) []Candidate {
	var candidates []Candidate
	auto := func(name string) {
		candidates = append(candidates, Candidate{Name: name, Type: domain.TagAuto, Confidence: ConfidenceAuto})
	}

	if meta != nil {
		if taken := meta.TakenTime; taken != nil {
			auto(fmt.Sprintf("year:%d", taken.Year()))
			auto(fmt.Sprintf("month:%02d", int(taken.Month())))
			auto("season:" + season(int(taken.Month())))
			auto("daypart:" + daypart(taken.Hour()))
		}
		if meta.CameraMake != "" {
			auto("camera:" + collapseWhitespace(meta.CameraMake))
		}
		if meta.CameraModel != "" {
			auto("camera-model:" + collapseWhitespace(meta.CameraModel))
		}
		if meta.LocationName != "" {
			auto("location:" + collapseWhitespace(meta.LocationName))
		}
	}

	if img.Width > 0 && img.Height > 0 {
		if img.Width >= img.Height {
			auto("orientation:landscape")
		} else {
			auto("orientation:portrait")
		}
	}
	if img.MimeType != "" {
		auto("format:" + strings.ToLower(img.MimeType))
	}
	return candidates
}

// season разбивает месяцы по корзинам (month-1)/3:
// весна, лето, осень, зима
func season(month int) string {
	switch (month - 1) / 3 {
	case 0:
		return "spring"
	case 1:
		return "summer"
	case 2:
		return "autumn"
	default:
		return "winter"
	}
}

// daypart возвращает корзину времени суток по часу съёмки
func daypart(hour int) string {
	switch {
	case hour >= 5 && hour < 11:
		return "morning"
	case hour >= 11 && hour < 17:
		return "afternoon"
	case hour >= 17 && hour < 21:
		return "evening"
	default:
		return "night"
	}
}

// MergeCandidates нормализует кандидатов и сливает дубликаты.
// Имя обрезается, внутренние пробелы схлопываются в один; пустые
// после обрезки кандидаты отбрасываются. Группировка — без учёта
// регистра, в группе выживает кандидат с наибольшей уверенностью;
// при равенстве остаётся первый по порядку (детерминированно).
// Порядок первых вхождений групп сохраняется
func MergeCandidates(raw []Candidate) []Candidate {
	merged := make([]Candidate, 0, len(raw))
	index := make(map[string]int, len(raw))

	for _, candidate := range raw {
		name := collapseWhitespace(candidate.Name)
		if name == "" {
			continue
		}
		candidate.Name = name

		key := strings.ToLower(name)
		if at, ok := index[key]; ok {
			if candidate.Confidence > merged[at].Confidence {
				merged[at] = candidate
			}
			continue
		}
		index[key] = len(merged)
		merged = append(merged, candidate)
	}
	return merged
}

// ClampConfidence приводит уверенность AI-тега к диапазону [0,1]:
// значения выше единицы усекаются до единицы, отрицательные
// откатываются к значению по умолчанию
func ClampConfidence(value float64) float64 {
	if value < 0 {
		return ConfidenceAIDefault
	}
	if value > 1 {
		return 1
	}
	return value
}

func collapseWhitespace(s string) string {
	return whitespaceRun.ReplaceAllString(strings.TrimSpace(s), " ")
}
