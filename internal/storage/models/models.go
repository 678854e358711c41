package models

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

// User 用户主表，同时承载API鉴权（api_token换取主体身份）
type User struct {
	UserID    string    `gorm:"type:char(36);primaryKey" json:"id"`
	Name      string    `gorm:"type:varchar(255);not null" json:"name"`
	Email     string    `gorm:"type:varchar(255);uniqueIndex:idx_users_email_unique" json:"email"`
	Role      string    `gorm:"type:varchar(20);default:'candidate';index:idx_users_role" json:"role"`
	APIToken  string    `gorm:"type:char(64);uniqueIndex:idx_users_api_token" json:"-"`
	CreatedAt time.Time `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6)" json:"created_at"`
	UpdatedAt time.Time `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6);autoUpdateTime" json:"updated_at"`
}

func (User) TableName() string {
	return "users"
}

// Company 公司表，通知对象（email可空）
type Company struct {
	CompanyID string    `gorm:"type:char(36);primaryKey" json:"id"`
	Name      string    `gorm:"type:varchar(255);not null" json:"name"`
	Email     string    `gorm:"type:varchar(255)" json:"email,omitempty"`
	Website   string    `gorm:"type:varchar(255)" json:"website,omitempty"`
	CreatedAt time.Time `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6)" json:"created_at"`
	UpdatedAt time.Time `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6);autoUpdateTime" json:"updated_at"`
}

func (Company) TableName() string {
	return "companies"
}

// Job 岗位信息表
// IsActive 同时控制公开可见性和可搜索性；Status 是独立的审核状态
type Job struct {
	JobID          string         `gorm:"type:char(36);primaryKey" json:"id"`
	CompanyID      string         `gorm:"type:char(36);not null;index:idx_jobs_company_id" json:"company_id"`
	Title          string         `gorm:"type:varchar(255);not null" json:"title"`
	Description    string         `gorm:"type:text" json:"description"`
	Location       string         `gorm:"type:varchar(255)" json:"location"`
	Type           string         `gorm:"type:varchar(50)" json:"type"`
	SalaryMin      *float64       `gorm:"type:decimal(12,2)" json:"salary_min"`
	SalaryMax      *float64       `gorm:"type:decimal(12,2)" json:"salary_max"`
	SalaryCurrency string         `gorm:"type:char(3)" json:"salary_currency"`
	Requirements   datatypes.JSON `gorm:"type:json" json:"requirements"`
	Benefits       datatypes.JSON `gorm:"type:json" json:"benefits"`
	IsActive       bool           `gorm:"default:true;index:idx_jobs_is_active" json:"is_active"`
	Status         string         `gorm:"type:varchar(20);default:'pending';index:idx_jobs_status" json:"status"`
	PostedAt       time.Time      `gorm:"type:datetime(6);index:idx_jobs_posted_at" json:"posted_at"`
	CreatedAt      time.Time      `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6)" json:"created_at"`
	UpdatedAt      time.Time      `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6);autoUpdateTime" json:"updated_at"`

	Company    *Company       `gorm:"foreignKey:CompanyID;references:CompanyID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"company,omitempty"`
	AIMetadata *AIJobMetadata `gorm:"foreignKey:JobID;references:JobID" json:"ai_metadata,omitempty"`
}

func (Job) TableName() string {
	return "jobs"
}

// RequirementList 反序列化requirements JSON列为字符串列表，解析失败按空处理
func (j *Job) RequirementList() []string {
	var out []string
	if len(j.Requirements) > 0 {
		_ = json.Unmarshal(j.Requirements, &out)
	}
	return out
}

// AIJobMetadata AI生成的岗位元数据，与Job一对一
// 仅由JD生成任务写入，管道自身不回读
type AIJobMetadata struct {
	JobID                 string         `gorm:"type:char(36);primaryKey" json:"job_id"`
	GeneratedDescription  string         `gorm:"type:text" json:"generated_description"`
	ExtractedRequirements datatypes.JSON `gorm:"type:json" json:"extracted_requirements"`
	SuggestedSkills       datatypes.JSON `gorm:"type:json" json:"suggested_skills"`
	ModelName             string         `gorm:"type:varchar(100)" json:"model_name"`
	ProcessedAt           *time.Time     `gorm:"type:datetime(6)" json:"processed_at"`

	Job *Job `gorm:"foreignKey:JobID;references:JobID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
}

func (AIJobMetadata) TableName() string {
	return "ai_job_metadata"
}

// SuggestedSkillList 反序列化AI建议技能列表
func (m *AIJobMetadata) SuggestedSkillList() []string {
	var out []string
	if len(m.SuggestedSkills) > 0 {
		_ = json.Unmarshal(m.SuggestedSkills, &out)
	}
	return out
}

// Resume 简历表
// ParsedProfile 只允许从null到非null转换一次，由CV解析任务写入
type Resume struct {
	ResumeID      string         `gorm:"type:char(36);primaryKey" json:"id"`
	UserID        string         `gorm:"type:char(36);not null;index:idx_resumes_user_id" json:"user_id"`
	Title         string         `gorm:"type:varchar(255)" json:"title"`
	FilePath      string         `gorm:"type:varchar(1024)" json:"file_path"`
	ExternalURL   *string        `gorm:"type:varchar(2048)" json:"external_url"` // 仅在配置了持久对象存储时写入
	ParsedProfile datatypes.JSON `gorm:"type:json" json:"parsed_profile"`
	IsDefault     bool           `gorm:"default:false" json:"is_default"`
	CreatedAt     time.Time      `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6)" json:"created_at"`
	UpdatedAt     time.Time      `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6);autoUpdateTime" json:"updated_at"`
}

func (Resume) TableName() string {
	return "resumes"
}

// Parsed 解析结果是否已落库
func (r *Resume) Parsed() bool {
	return len(r.ParsedProfile) > 0
}

// Application 岗位申请表，(user_id, job_id)唯一
// Score 只允许从null到非null转换一次，由匹配打分任务写入
type Application struct {
	ApplicationID string    `gorm:"type:char(36);primaryKey" json:"id"`
	UserID        string    `gorm:"type:char(36);not null;uniqueIndex:idx_applications_user_job,priority:1" json:"user_id"`
	JobID         string    `gorm:"type:char(36);not null;uniqueIndex:idx_applications_user_job,priority:2;index:idx_applications_job_id" json:"job_id"`
	ResumeID      *string   `gorm:"type:char(36)" json:"resume_id"`
	CoverLetter   string    `gorm:"type:text" json:"cover_letter"`
	Status        string    `gorm:"type:varchar(20);default:'pending';index:idx_applications_status" json:"status"`
	Score         *float64  `gorm:"type:float" json:"score"`
	AppliedAt     time.Time `gorm:"type:datetime(6);index:idx_applications_applied_at" json:"applied_at"`
	CreatedAt     time.Time `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6)" json:"created_at"`
	UpdatedAt     time.Time `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6);autoUpdateTime" json:"updated_at"`

	Job    *Job    `gorm:"foreignKey:JobID;references:JobID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"job,omitempty"`
	Resume *Resume `gorm:"foreignKey:ResumeID;references:ResumeID;constraint:OnUpdate:CASCADE,OnDelete:SET NULL" json:"resume,omitempty"`
	User   *User   `gorm:"foreignKey:UserID;references:UserID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"user,omitempty"`
}

func (Application) TableName() string {
	return "applications"
}

// StringsToJSON 字符串列表转JSON列
func StringsToJSON(items []string) (datatypes.JSON, error) {
	bytes, err := json.Marshal(items)
	if err != nil {
		return nil, err
	}
	return bytes, nil
}
