package notify

import (
	"context"
	"fmt"

	"job-portal-go/internal/config"
	"job-portal-go/internal/logger"
	"job-portal-go/internal/storage/models"

	"gopkg.in/gomail.v2"
)

// Mailer 公司邮件通知器
type Mailer struct {
	dialer *gomail.Dialer
	from   string
}

// NewMailer 创建SMTP邮件通知器，未配置SMTP时返回nil
func NewMailer(cfg *config.SMTPConfig) *Mailer {
	if !cfg.Enabled() {
		logger.Info().Msg("未配置SMTP，公司邮件通知关闭")
		return nil
	}
	return &Mailer{
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		from:   cfg.From,
	}
}

// JobDescriptionGenerated 通知公司其岗位的描述已生成完毕
func (m *Mailer) JobDescriptionGenerated(ctx context.Context, company *models.Company, job *models.Job) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", company.Email)
	msg.SetHeader("Subject", fmt.Sprintf("岗位描述已生成: %s", job.Title))
	msg.SetBody("text/plain", fmt.Sprintf(
		"%s 您好，\n\n您的岗位「%s」的描述已由AI生成完毕，请登录平台查看并确认。\n\n岗位ID: %s\n",
		company.Name, job.Title, job.JobID))

	if err := m.dialer.DialAndSend(msg); err != nil {
		return fmt.Errorf("发送邮件到 %s 失败: %w", company.Email, err)
	}

	logger.Info().
		Str("company_id", company.CompanyID).
		Str("job_id", job.JobID).
		Msg("已发送JD生成完成通知")
	return nil
}
