package search

import (
	"context"
	"fmt"
	"strings"

	"job-portal-go/internal/logger"
	"job-portal-go/internal/storage"
	"job-portal-go/internal/storage/models"

	sq "github.com/Masterminds/squirrel"
	"github.com/meilisearch/meilisearch-go"
)

const (
	defaultPerPage = 15
	maxPerPage     = 100
)

// IndexSearcher 索引查询能力，由Meilisearch适配器实现
type IndexSearcher interface {
	Search(query string, req *meilisearch.SearchRequest) (*meilisearch.SearchResponse, error)
}

// Params 岗位搜索参数
type Params struct {
	Query     string
	City      string
	Type      string
	SalaryMin *float64
	SalaryMax *float64
	Page      int64
	PerPage   int64
}

func (p *Params) normalize() {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PerPage <= 0 {
		p.PerPage = defaultPerPage
	}
	if p.PerPage > maxPerPage {
		p.PerPage = maxPerPage
	}
}

// Page 分页结果信封，两条查询路径返回同一形态
type Page struct {
	Data        []models.Job `json:"data"`
	CurrentPage int64        `json:"current_page"`
	LastPage    int64        `json:"last_page"`
	PerPage     int64        `json:"per_page"`
	Total       int64        `json:"total"`
	From        *int64       `json:"from"`
	To          *int64       `json:"to"`
}

// Service 岗位搜索服务
// 索引可用时由索引决定排名，数据库按索引给出的顺序补全行数据
// 索引不可用或查询出错时整体回退到数据库模糊查询，信封形态不变
type Service struct {
	mysql *storage.MySQL
	meili IndexSearcher
}

// NewService 创建搜索服务，meili为nil时只走数据库路径
func NewService(mysql *storage.MySQL, meili IndexSearcher) *Service {
	return &Service{mysql: mysql, meili: meili}
}

// Search 搜索活跃岗位
func (s *Service) Search(ctx context.Context, params Params) (*Page, error) {
	params.normalize()

	if s.meili != nil {
		page, err := s.searchIndex(ctx, &params)
		if err == nil {
			return page, nil
		}
		logger.Warn().Err(err).Msg("索引查询失败，回退到数据库搜索")
	}

	return s.searchDatabase(ctx, &params)
}

// searchIndex 索引路径：Meilisearch排名，数据库回表
func (s *Service) searchIndex(ctx context.Context, p *Params) (*Page, error) {
	resp, err := s.meili.Search(p.Query, &meilisearch.SearchRequest{
		Filter:      buildIndexFilter(p),
		Sort:        []string{"posted_at:desc"},
		Page:        p.Page,
		HitsPerPage: p.PerPage,
	})
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(resp.Hits))
	for _, hit := range resp.Hits {
		doc, ok := hit.(map[string]interface{})
		if !ok {
			continue
		}
		if id, ok := doc["id"].(string); ok {
			ids = append(ids, id)
		}
	}

	jobs, err := s.fetchOrdered(ctx, ids)
	if err != nil {
		return nil, err
	}

	return buildPage(jobs, p.Page, p.PerPage, resp.TotalHits), nil
}

// buildIndexFilter 构造Meilisearch过滤表达式，数组元素之间是AND关系
func buildIndexFilter(p *Params) []string {
	filter := []string{"is_active = true"}
	if p.City != "" {
		filter = append(filter, fmt.Sprintf(`location_city = "%s"`, escapeFilterValue(p.City)))
	}
	if p.Type != "" {
		filter = append(filter, fmt.Sprintf(`type = "%s"`, escapeFilterValue(p.Type)))
	}
	// 期望薪资区间与岗位薪资区间有交集
	if p.SalaryMin != nil {
		filter = append(filter, fmt.Sprintf("salary_max >= %g", *p.SalaryMin))
	}
	if p.SalaryMax != nil {
		filter = append(filter, fmt.Sprintf("salary_min <= %g", *p.SalaryMax))
	}
	return filter
}

func escapeFilterValue(v string) string {
	return strings.ReplaceAll(strings.ReplaceAll(v, `\`, `\\`), `"`, `\"`)
}

// fetchOrdered 按ID批量回表并还原索引给出的排名顺序
// 索引里有而数据库里已删除的行直接跳过，容忍索引短暂滞后
func (s *Service) fetchOrdered(ctx context.Context, ids []string) ([]models.Job, error) {
	rows, err := s.mysql.GetJobsByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("按ID回表失败: %w", err)
	}

	byID := make(map[string]*models.Job, len(rows))
	for i := range rows {
		byID[rows[i].JobID] = &rows[i]
	}

	ordered := make([]models.Job, 0, len(ids))
	for _, id := range ids {
		if job, ok := byID[id]; ok {
			ordered = append(ordered, *job)
		}
	}
	return ordered, nil
}

// searchDatabase 回退路径：数据库LIKE查询，排序和信封与索引路径一致
func (s *Service) searchDatabase(ctx context.Context, p *Params) (*Page, error) {
	idsSQL, idsArgs, countSQL, countArgs, err := buildFallbackSQL(p)
	if err != nil {
		return nil, fmt.Errorf("构造回退查询失败: %w", err)
	}

	db := s.mysql.DB().WithContext(ctx)

	var total int64
	if err := db.Raw(countSQL, countArgs...).Scan(&total).Error; err != nil {
		return nil, fmt.Errorf("统计回退查询总数失败: %w", err)
	}

	var ids []string
	if err := db.Raw(idsSQL, idsArgs...).Scan(&ids).Error; err != nil {
		return nil, fmt.Errorf("执行回退查询失败: %w", err)
	}

	jobs, err := s.fetchOrdered(ctx, ids)
	if err != nil {
		return nil, err
	}

	return buildPage(jobs, p.Page, p.PerPage, total), nil
}

// buildFallbackSQL 构造回退路径的分页查询和计数查询
func buildFallbackSQL(p *Params) (idsSQL string, idsArgs []interface{}, countSQL string, countArgs []interface{}, err error) {
	conds := fallbackConditions(p)

	idsSQL, idsArgs, err = sq.Select("job_id").
		From("jobs").
		Where(conds).
		OrderBy("posted_at DESC").
		Limit(uint64(p.PerPage)).
		Offset(uint64((p.Page - 1) * p.PerPage)).
		ToSql()
	if err != nil {
		return "", nil, "", nil, err
	}

	countSQL, countArgs, err = sq.Select("COUNT(*)").
		From("jobs").
		Where(conds).
		ToSql()
	if err != nil {
		return "", nil, "", nil, err
	}
	return idsSQL, idsArgs, countSQL, countArgs, nil
}

func fallbackConditions(p *Params) sq.And {
	conds := sq.And{sq.Eq{"is_active": true}}
	if p.Query != "" {
		like := "%" + p.Query + "%"
		conds = append(conds, sq.Or{
			sq.Like{"title": like},
			sq.Like{"description": like},
		})
	}
	if p.City != "" {
		conds = append(conds, sq.Like{"location": "%" + p.City + "%"})
	}
	if p.Type != "" {
		conds = append(conds, sq.Eq{"type": p.Type})
	}
	if p.SalaryMin != nil {
		conds = append(conds, sq.GtOrEq{"salary_max": *p.SalaryMin})
	}
	if p.SalaryMax != nil {
		conds = append(conds, sq.LtOrEq{"salary_min": *p.SalaryMax})
	}
	return conds
}

// buildPage 组装分页信封，空结果时from/to为null
func buildPage(data []models.Job, page, perPage, total int64) *Page {
	lastPage := total / perPage
	if total%perPage != 0 {
		lastPage++
	}
	if lastPage < 1 {
		lastPage = 1
	}

	result := &Page{
		Data:        data,
		CurrentPage: page,
		LastPage:    lastPage,
		PerPage:     perPage,
		Total:       total,
	}
	if len(data) > 0 {
		from := (page-1)*perPage + 1
		to := from + int64(len(data)) - 1
		result.From = &from
		result.To = &to
	}
	if result.Data == nil {
		result.Data = []models.Job{}
	}
	return result
}
