package search

import (
	"strings"

	"github.com/Fronut/Picture-management-website/internal/domain"
	"github.com/google/uuid"
)

// Fragment — именованный фрагмент предиката: условие с аргументами,
// при необходимости с JOIN-ом. Фрагменты объединяются через AND
// в том порядке, в котором построены
type Fragment struct {
	Name string
	Cond string
	Args []any
	Join string
}

// Query — скомпилированный поисковый запрос: упорядоченные фрагменты,
// сортировка и признак DISTINCT (нужен при JOIN-е по тегам)
type Query struct {
	Fragments []Fragment
	OrderBy   string
	Desc      bool
	Distinct  bool
}

// Сортируемые поля из белого списка. Всё остальное молча
// откатывается к upload_time
var sortableColumns = map[string]string{
	"originalFilename": "original_filename",
	"filename":         "original_filename",
	"fileSize":         "file_size",
	"size":             "file_size",
	"width":            "width",
	"height":           "height",
}

// Build компилирует критерии поиска и идентичность запрашивающего
// в список фрагментов предиката. requester равен nil для анонимного
// запроса. Фрагмент видимости всегда строится первым: приватные
// изображения не должны попасть в чужую выдачу ни при какой
// комбинации фильтров
func Build(c Criteria, requester *uuid.UUID) (*Query, error) {
	c.Normalize()
	if err := c.Validate(); err != nil {
		return nil, err
	}

	q := &Query{}
	q.Fragments = append(q.Fragments, visibilityFragment(c, requester))

	if kw := strings.TrimSpace(c.Keyword); kw != "" {
		pattern := "%" + strings.ToLower(kw) + "%"
		q.Fragments = append(q.Fragments, Fragment{
			Name: "keyword",
			Cond: "(LOWER(images.original_filename) LIKE ? OR LOWER(images.description) LIKE ?)",
			Args: []any{pattern, pattern},
		})
	}

	if c.UploadedFrom != nil {
		q.Fragments = append(q.Fragments, Fragment{
			Name: "uploaded_from",
			Cond: "images.upload_time >= ?",
			Args: []any{*c.UploadedFrom},
		})
	}
	if c.UploadedTo != nil {
		q.Fragments = append(q.Fragments, Fragment{
			Name: "uploaded_to",
			Cond: "images.upload_time <= ?",
			Args: []any{*c.UploadedTo},
		})
	}

	if c.MinWidth != nil {
		q.Fragments = append(q.Fragments, Fragment{Name: "min_width", Cond: "images.width >= ?", Args: []any{*c.MinWidth}})
	}
	if c.MaxWidth != nil {
		q.Fragments = append(q.Fragments, Fragment{Name: "max_width", Cond: "images.width <= ?", Args: []any{*c.MaxWidth}})
	}
	if c.MinHeight != nil {
		q.Fragments = append(q.Fragments, Fragment{Name: "min_height", Cond: "images.height >= ?", Args: []any{*c.MinHeight}})
	}
	if c.MaxHeight != nil {
		q.Fragments = append(q.Fragments, Fragment{Name: "max_height", Cond: "images.height <= ?", Args: []any{*c.MaxHeight}})
	}

	// JOIN с exif_data создаётся только когда запрошен фильтр по камере
	cameraMake := strings.TrimSpace(c.CameraMake)
	cameraModel := strings.TrimSpace(c.CameraModel)
	if cameraMake != "" || cameraModel != "" {
		exifJoin := "LEFT JOIN exif_data ON exif_data.image_id = images.id"
		if cameraMake != "" {
			q.Fragments = append(q.Fragments, Fragment{
				Name: "camera_make",
				Cond: "LOWER(exif_data.camera_make) = ?",
				Args: []any{strings.ToLower(cameraMake)},
				Join: exifJoin,
			})
			exifJoin = ""
		}
		if cameraModel != "" {
			q.Fragments = append(q.Fragments, Fragment{
				Name: "camera_model",
				Cond: "LOWER(exif_data.camera_model) = ?",
				Args: []any{strings.ToLower(cameraModel)},
				Join: exifJoin,
			})
		}
	}

	if len(c.Tags) > 0 {
		q.Distinct = true
		q.Fragments = append(q.Fragments, Fragment{
			Name: "tags",
			Cond: "tags.tag_name IN ?",
			Args: []any{c.Tags},
			Join: "LEFT JOIN image_tags ON image_tags.image_id = images.id " +
				"LEFT JOIN tags ON tags.id = image_tags.tag_id",
		})
	}

	q.OrderBy = sortColumn(c.SortBy)
	q.Desc = !strings.EqualFold(c.SortDir, "asc")
	return q, nil
}

// visibilityFragment строит обязательный предикат видимости (см. правила
// ниже в порядке приоритета):
//   - аноним видит только PUBLIC;
//   - "только свои" — все изображения запрашивающего;
//   - явный фильтр PRIVATE — только собственные приватные;
//   - явный фильтр PUBLIC — все публичные;
//   - иначе — публичные плюс собственные
func visibilityFragment(c Criteria, requester *uuid.UUID) Fragment {
	if requester == nil {
		return Fragment{
			Name: "visibility",
			Cond: "images.privacy_level = ?",
			Args: []any{string(domain.PrivacyPublic)},
		}
	}
	if c.OnlyOwn {
		return Fragment{
			Name: "visibility",
			Cond: "images.user_id = ?",
			Args: []any{*requester},
		}
	}
	if c.PrivacyLevel != nil && *c.PrivacyLevel == domain.PrivacyPrivate {
		return Fragment{
			Name: "visibility",
			Cond: "(images.privacy_level = ? AND images.user_id = ?)",
			Args: []any{string(domain.PrivacyPrivate), *requester},
		}
	}
	if c.PrivacyLevel != nil && *c.PrivacyLevel == domain.PrivacyPublic {
		return Fragment{
			Name: "visibility",
			Cond: "images.privacy_level = ?",
			Args: []any{string(domain.PrivacyPublic)},
		}
	}
	return Fragment{
		Name: "visibility",
		Cond: "(images.privacy_level = ? OR images.user_id = ?)",
		Args: []any{string(domain.PrivacyPublic), *requester},
	}
}

func sortColumn(sortBy string) string {
	if col, ok := sortableColumns[sortBy]; ok {
		return col
	}
	return "upload_time"
}
