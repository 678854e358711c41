package search

import (
	"testing"
	"time"

	"job-portal-go/internal/storage/models"

	"github.com/stretchr/testify/assert"
	"gorm.io/datatypes"
)

func TestExtractCity(t *testing.T) {
	cases := []struct {
		location string
		want     string
	}{
		{"Berlin, Germany", "Berlin"},
		{"上海, 中国", "上海"},
		{"Remote", "Remote"},
		{" Munich , Bavaria, Germany", "Munich"},
		{"", ""},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, ExtractCity(tc.location), "location=%q", tc.location)
	}
}

func TestBuildJobDocument(t *testing.T) {
	postedAt := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	min, max := 5000.0, 9000.0
	job := &models.Job{
		JobID:        "j1",
		Title:        "Go后端工程师",
		Description:  "负责任务管道开发",
		Location:     "Berlin, Germany",
		Type:         "full_time",
		SalaryMin:    &min,
		SalaryMax:    &max,
		Requirements: datatypes.JSON(`["Go","MySQL"]`),
		IsActive:     true,
		PostedAt:     postedAt,
		Company:      &models.Company{Name: "示例科技"},
		AIMetadata: &models.AIJobMetadata{
			SuggestedSkills: datatypes.JSON(`["go","RabbitMQ"]`),
		},
	}

	doc := BuildJobDocument(job)

	assert.Equal(t, "j1", doc.ID)
	assert.Equal(t, "Berlin", doc.City)
	assert.Equal(t, "示例科技", doc.CompanyName)
	assert.Equal(t, postedAt.Unix(), doc.PostedAt)
	// 岗位要求与AI建议合并去重，大小写不敏感，保序
	assert.Equal(t, []string{"Go", "MySQL", "RabbitMQ"}, doc.Skills)
	assert.True(t, doc.IsActive)
}

func TestBuildJobDocumentWithoutCompanyOrMetadata(t *testing.T) {
	job := &models.Job{JobID: "j2", Location: "Remote"}

	doc := BuildJobDocument(job)

	assert.Empty(t, doc.CompanyName)
	assert.Empty(t, doc.Skills)
	assert.Equal(t, "Remote", doc.City)
}
