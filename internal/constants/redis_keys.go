package constants

// Redis键前缀集中定义，避免各处硬编码
const (
	// ResumeFileMD5SetKey 已上传简历文件MD5集合，用于上传去重
	ResumeFileMD5SetKey = "portal:resume:file_md5_set"

	// JobDescriptionCachePrefix 岗位描述文本缓存，后接job_id
	JobDescriptionCachePrefix = "portal:job:description:"
)
