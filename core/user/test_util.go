package user

import "github.com/YKZSolutions/MMDC-Student-Portal-sub002/core"

// NewServiceMock returns a Service sending password reset mails synchronously.
func NewServiceMock(repo Repository, mailSvc core.EmailService, conf *core.Config) Service {
	return &service{
		repo:     repo,
		mailSvc:  mailSvc,
		conf:     conf,
		tokens:   newTokenGenerator(conf),
		sendSync: true,
	}
}
