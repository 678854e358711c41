package storage

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"job-portal-go/internal/config"
	"job-portal-go/internal/storage/models"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/datatypes"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

var mysqlTracer = otel.Tracer("job-portal-go/storage/mysql")

// gormSpanKey 存放span的语句上下文键
const gormSpanKey = "otel-span"

// GormTracingPlugin GORM插件，为数据库操作添加OpenTelemetry追踪
type GormTracingPlugin struct {
	tracer trace.Tracer
	dbName string
}

// NewGormTracingPlugin 创建GORM追踪插件
func NewGormTracingPlugin(dbName string) *GormTracingPlugin {
	return &GormTracingPlugin{
		tracer: mysqlTracer,
		dbName: dbName,
	}
}

// Name 返回插件名称
func (p *GormTracingPlugin) Name() string {
	return "GormOpenTelemetryPlugin"
}

// Initialize 为各类CRUD操作注册前后回调
func (p *GormTracingPlugin) Initialize(db *gorm.DB) error {
	cb := db.Callback()
	type hook struct {
		op       string
		register func() error
	}
	hooks := []hook{
		{"CREATE", func() error {
			if err := cb.Create().Before("gorm:create").Register("otel:before_create", p.before("CREATE")); err != nil {
				return err
			}
			return cb.Create().After("gorm:create").Register("otel:after_create", p.after())
		}},
		{"SELECT", func() error {
			if err := cb.Query().Before("gorm:query").Register("otel:before_query", p.before("SELECT")); err != nil {
				return err
			}
			return cb.Query().After("gorm:query").Register("otel:after_query", p.after())
		}},
		{"UPDATE", func() error {
			if err := cb.Update().Before("gorm:update").Register("otel:before_update", p.before("UPDATE")); err != nil {
				return err
			}
			return cb.Update().After("gorm:update").Register("otel:after_update", p.after())
		}},
		{"DELETE", func() error {
			if err := cb.Delete().Before("gorm:delete").Register("otel:before_delete", p.before("DELETE")); err != nil {
				return err
			}
			return cb.Delete().After("gorm:delete").Register("otel:after_delete", p.after())
		}},
		{"RAW", func() error {
			if err := cb.Raw().Before("gorm:raw").Register("otel:before_raw", p.before("RAW")); err != nil {
				return err
			}
			return cb.Raw().After("gorm:raw").Register("otel:after_raw", p.after())
		}},
	}
	for _, h := range hooks {
		if err := h.register(); err != nil {
			return fmt.Errorf("注册%s追踪回调失败: %w", h.op, err)
		}
	}
	return nil
}

func (p *GormTracingPlugin) before(operation string) func(db *gorm.DB) {
	return func(db *gorm.DB) {
		ctx := db.Statement.Context
		if ctx == nil {
			ctx = context.Background()
		}

		tableName := db.Statement.Table
		if tableName == "" {
			tableName = "unknown"
		}

		newCtx, _ := p.tracer.Start(ctx, fmt.Sprintf("%s %s", operation, tableName),
			trace.WithSpanKind(trace.SpanKindClient),
			trace.WithAttributes(
				semconv.DBSystemMySQL,
				attribute.String("db.name", p.dbName),
				attribute.String("db.operation", operation),
				attribute.String("db.sql.table", tableName),
			),
		)
		db.Statement.Context = newCtx
	}
}

func (p *GormTracingPlugin) after() func(db *gorm.DB) {
	return func(db *gorm.DB) {
		span := trace.SpanFromContext(db.Statement.Context)
		if !span.IsRecording() {
			return
		}
		defer span.End()

		span.SetAttributes(attribute.Int64("db.rows_affected", db.Statement.RowsAffected))

		if db.Error != nil {
			if errors.Is(db.Error, gorm.ErrRecordNotFound) {
				// ErrRecordNotFound属于业务正常分支，不按错误上报
				span.SetStatus(codes.Ok, "record not found")
			} else {
				span.RecordError(db.Error)
				span.SetStatus(codes.Error, db.Error.Error())
			}
		} else {
			span.SetStatus(codes.Ok, "")
		}
	}
}

// MySQL 提供关系数据库功能
type MySQL struct {
	db  *gorm.DB
	cfg *config.MySQLConfig
}

// NewMySQL 创建MySQL客户端并自动迁移表结构
func NewMySQL(cfg *config.MySQLConfig) (*MySQL, error) {
	if cfg == nil {
		return nil, fmt.Errorf("MySQL配置不能为空")
	}

	var logLevel logger.LogLevel
	switch cfg.LogLevel {
	case 1:
		logLevel = logger.Silent
	case 2:
		logLevel = logger.Error
	case 3:
		logLevel = logger.Warn
	default:
		logLevel = logger.Info
	}

	gormConfig := &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
		TranslateError:                           true,
		Logger:                                   logger.Default.LogMode(logLevel),
		PrepareStmt:                              true,
		NowFunc: func() time.Time {
			return time.Now().Local()
		},
	}

	db, err := gorm.Open(mysql.Open(cfg.DSN()), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("连接MySQL失败: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("获取底层 sql.DB 失败: %w", err)
	}
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetimeMinutes) * time.Minute)
	sqlDB.SetConnMaxIdleTime(time.Duration(cfg.ConnMaxIdleTimeMinutes) * time.Minute)

	m := &MySQL{db: db, cfg: cfg}

	if err := db.Use(NewGormTracingPlugin(cfg.Database)); err != nil {
		return nil, fmt.Errorf("注册追踪插件失败: %w", err)
	}

	if err := m.autoMigrateSchema(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("自动迁移数据库结构失败: %w", err)
	}

	log.Println("成功连接到MySQL并自动迁移数据库结构")
	return m, nil
}

// autoMigrateSchema 使用GORM自动迁移全部业务表
func (m *MySQL) autoMigrateSchema() error {
	// 迁移期间静默SQL日志
	silentDB := m.db.Session(&gorm.Session{Logger: logger.Default.LogMode(logger.Silent)})

	return silentDB.AutoMigrate(
		&models.User{},
		&models.Company{},
		&models.Job{},
		&models.AIJobMetadata{},
		&models.Resume{},
		&models.Application{},
	)
}

// DB 返回GORM数据库连接实例
func (m *MySQL) DB() *gorm.DB {
	return m.db
}

// Close 关闭数据库连接
func (m *MySQL) Close() error {
	sqlDB, err := m.db.DB()
	if err != nil {
		return fmt.Errorf("获取底层 sql.DB 失败: %w", err)
	}
	return sqlDB.Close()
}

// GetResumeByID 按ID获取简历，未找到返回(nil, nil)
func (m *MySQL) GetResumeByID(ctx context.Context, resumeID string) (*models.Resume, error) {
	var resume models.Resume
	err := m.db.WithContext(ctx).Where("resume_id = ?", resumeID).First(&resume).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &resume, nil
}

// SetResumeParsedProfile 写入简历解析结果（单列更新）
func (m *MySQL) SetResumeParsedProfile(ctx context.Context, resumeID string, profile datatypes.JSON) error {
	return m.db.WithContext(ctx).Model(&models.Resume{}).
		Where("resume_id = ?", resumeID).
		Update("parsed_profile", profile).Error
}

// GetApplicationDetail 按ID获取申请并带出岗位与简历，未找到返回(nil, nil)
func (m *MySQL) GetApplicationDetail(ctx context.Context, applicationID string) (*models.Application, error) {
	var app models.Application
	err := m.db.WithContext(ctx).
		Preload("Job").
		Preload("Resume").
		Where("application_id = ?", applicationID).
		First(&app).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &app, nil
}

// SetApplicationScore 写入申请的匹配得分（单列更新）
func (m *MySQL) SetApplicationScore(ctx context.Context, applicationID string, score float64) error {
	return m.db.WithContext(ctx).Model(&models.Application{}).
		Where("application_id = ?", applicationID).
		Update("score", score).Error
}

// GetJobByID 按ID获取岗位并带出公司与AI元数据，未找到返回(nil, nil)
func (m *MySQL) GetJobByID(ctx context.Context, jobID string) (*models.Job, error) {
	var job models.Job
	err := m.db.WithContext(ctx).
		Preload("Company").
		Preload("AIMetadata").
		Where("job_id = ?", jobID).
		First(&job).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &job, nil
}

// SetJobDescription 覆盖岗位描述（单列更新，JD生成任务是该列的唯一写入方）
func (m *MySQL) SetJobDescription(ctx context.Context, jobID string, description string) error {
	return m.db.WithContext(ctx).Model(&models.Job{}).
		Where("job_id = ?", jobID).
		Update("description", description).Error
}

// UpsertAIJobMetadata 写入或更新岗位的AI元数据
func (m *MySQL) UpsertAIJobMetadata(ctx context.Context, meta *models.AIJobMetadata) error {
	return m.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "job_id"}},
			UpdateAll: true,
		}).
		Create(meta).Error
}

// FindUserByAPIToken 按API token查找用户，未找到返回(nil, nil)
func (m *MySQL) FindUserByAPIToken(ctx context.Context, token string) (*models.User, error) {
	var user models.User
	err := m.db.WithContext(ctx).Where("api_token = ?", token).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// ActiveJobsInBatches 按固定批次遍历全部is_active岗位，供索引重建使用
func (m *MySQL) ActiveJobsInBatches(ctx context.Context, batchSize int, fn func(jobs []models.Job) error) error {
	ctx, span := mysqlTracer.Start(ctx, "MySQL.ActiveJobsInBatches",
		trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	var batch []models.Job
	result := m.db.WithContext(ctx).
		Preload("Company").
		Preload("AIMetadata").
		Where("is_active = ?", true).
		FindInBatches(&batch, batchSize, func(tx *gorm.DB, _ int) error {
			return fn(batch)
		})
	if result.Error != nil {
		span.RecordError(result.Error)
		return result.Error
	}
	span.SetAttributes(attribute.Int64("db.rows_affected", result.RowsAffected))
	return nil
}

// CreateResume 新建简历记录
func (m *MySQL) CreateResume(ctx context.Context, resume *models.Resume) error {
	return m.db.WithContext(ctx).Create(resume).Error
}

// ListResumesByUser 列出用户的全部简历，新的在前
func (m *MySQL) ListResumesByUser(ctx context.Context, userID string) ([]models.Resume, error) {
	var resumes []models.Resume
	err := m.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&resumes).Error
	return resumes, err
}

// CreateApplication 新建申请记录，(user_id, job_id)唯一冲突时返回gorm.ErrDuplicatedKey
func (m *MySQL) CreateApplication(ctx context.Context, app *models.Application) error {
	return m.db.WithContext(ctx).Create(app).Error
}

// GetApplicationByUserAndJob 查找用户对岗位的已有申请，未找到返回(nil, nil)
func (m *MySQL) GetApplicationByUserAndJob(ctx context.Context, userID, jobID string) (*models.Application, error) {
	var app models.Application
	err := m.db.WithContext(ctx).
		Where("user_id = ? AND job_id = ?", userID, jobID).
		First(&app).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &app, nil
}

// ListApplicationsByUser 列出用户的全部申请并带出岗位信息，新的在前
func (m *MySQL) ListApplicationsByUser(ctx context.Context, userID string) ([]models.Application, error) {
	var apps []models.Application
	err := m.db.WithContext(ctx).
		Preload("Job").
		Where("user_id = ?", userID).
		Order("applied_at DESC").
		Find(&apps).Error
	return apps, err
}

// ListApplicationsByJob 列出岗位收到的全部申请并带出候选人与简历
// orderByScore为true时按得分降序，未打分的排在最后
func (m *MySQL) ListApplicationsByJob(ctx context.Context, jobID string, orderByScore bool) ([]models.Application, error) {
	query := m.db.WithContext(ctx).
		Preload("User").
		Preload("Resume").
		Where("job_id = ?", jobID)
	if orderByScore {
		query = query.Order("score IS NULL, score DESC")
	} else {
		query = query.Order("applied_at DESC")
	}

	var apps []models.Application
	err := query.Find(&apps).Error
	return apps, err
}

// CreateJob 新建岗位记录
func (m *MySQL) CreateJob(ctx context.Context, job *models.Job) error {
	return m.db.WithContext(ctx).Create(job).Error
}

// UpdateJobFields 按列更新岗位
func (m *MySQL) UpdateJobFields(ctx context.Context, jobID string, fields map[string]interface{}) error {
	return m.db.WithContext(ctx).Model(&models.Job{}).
		Where("job_id = ?", jobID).
		Updates(fields).Error
}

// GetCompanyByID 按ID获取公司，未找到返回(nil, nil)
func (m *MySQL) GetCompanyByID(ctx context.Context, companyID string) (*models.Company, error) {
	var company models.Company
	err := m.db.WithContext(ctx).Where("company_id = ?", companyID).First(&company).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &company, nil
}

// GetJobsByIDs 批量按ID获取岗位并带出公司与AI元数据，返回顺序不保证
func (m *MySQL) GetJobsByIDs(ctx context.Context, jobIDs []string) ([]models.Job, error) {
	if len(jobIDs) == 0 {
		return nil, nil
	}
	var jobs []models.Job
	err := m.db.WithContext(ctx).
		Preload("Company").
		Preload("AIMetadata").
		Where("job_id IN ?", jobIDs).
		Find(&jobs).Error
	if err != nil {
		return nil, err
	}
	return jobs, nil
}

// CountActiveJobs 统计is_active岗位数量
func (m *MySQL) CountActiveJobs(ctx context.Context) (int64, error) {
	var count int64
	err := m.db.WithContext(ctx).Model(&models.Job{}).Where("is_active = ?", true).Count(&count).Error
	return count, err
}
