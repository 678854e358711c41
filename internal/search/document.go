package search

import (
	"strings"

	"job-portal-go/internal/storage/models"
)

// JobDocument 岗位在搜索索引中的文档形态
// skills合并岗位要求和AI建议技能，posted_at用unix秒以便排序
type JobDocument struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	CompanyName string   `json:"company_name"`
	Location    string   `json:"location"`
	City        string   `json:"location_city"`
	Type        string   `json:"type"`
	SalaryMin   *float64 `json:"salary_min"`
	SalaryMax   *float64 `json:"salary_max"`
	Skills      []string `json:"skills"`
	IsActive    bool     `json:"is_active"`
	PostedAt    int64    `json:"posted_at"`
}

// BuildJobDocument 从岗位行构造索引文档
func BuildJobDocument(job *models.Job) *JobDocument {
	doc := &JobDocument{
		ID:          job.JobID,
		Title:       job.Title,
		Description: job.Description,
		Location:    job.Location,
		City:        ExtractCity(job.Location),
		Type:        job.Type,
		SalaryMin:   job.SalaryMin,
		SalaryMax:   job.SalaryMax,
		Skills:      mergeSkills(job),
		IsActive:    job.IsActive,
		PostedAt:    job.PostedAt.Unix(),
	}
	if job.Company != nil {
		doc.CompanyName = job.Company.Name
	}
	return doc
}

// ExtractCity 取location第一个逗号前的部分作为城市
func ExtractCity(location string) string {
	city := location
	if idx := strings.Index(location, ","); idx >= 0 {
		city = location[:idx]
	}
	return strings.TrimSpace(city)
}

// mergeSkills 合并岗位要求与AI建议技能并去重，保持出现顺序
func mergeSkills(job *models.Job) []string {
	seen := make(map[string]bool)
	var out []string

	add := func(items []string) {
		for _, item := range items {
			item = strings.TrimSpace(item)
			if item == "" {
				continue
			}
			key := strings.ToLower(item)
			if seen[key] {
				continue
			}
			seen[key] = true
			out = append(out, item)
		}
	}

	add(job.RequirementList())
	if job.AIMetadata != nil {
		add(job.AIMetadata.SuggestedSkillList())
	}
	return out
}
