package constants

// 任务类型标识，随消息信封一起序列化，消费端按类型路由到对应处理器
const (
	TaskAnalyzeCV           = "analyze_cv"           // 简历解析
	TaskCalculateMatchScore = "calculate_match"      // 岗位匹配打分
	TaskGenerateDescription = "generate_description" // 岗位描述生成
)

// 申请状态枚举
const (
	ApplicationStatusPending     = "pending"
	ApplicationStatusReviewing   = "reviewing"
	ApplicationStatusShortlisted = "shortlisted"
	ApplicationStatusRejected    = "rejected"
	ApplicationStatusAccepted    = "accepted"
)

// 岗位审核状态，独立于is_active
const (
	JobStatusPending  = "pending"
	JobStatusApproved = "approved"
	JobStatusRejected = "rejected"
)

// 用户角色
const (
	RoleCandidate = "candidate"
	RoleEmployer  = "employer"
	RoleAdmin     = "admin"
)

// DefaultLocale JD生成的默认语言
const DefaultLocale = "en"

// RawTextMaxChars CV解析本地文本兜底的长度上限（超过则放弃本地解析）
const RawTextMaxChars = 100000
