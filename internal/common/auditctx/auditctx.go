// Package auditctx 在请求上下文中传递审计所需的客户端信息
package auditctx

import "context"

type clientKey struct{}

// Client 发起请求的客户端信息
type Client struct {
	IP        string
	UserAgent string
	RequestID string
}

// WithClient 将客户端信息写入上下文
func WithClient(ctx context.Context, c Client) context.Context {
	return context.WithValue(ctx, clientKey{}, c)
}

// ClientFrom 读取客户端信息，后台任务等场景返回零值
func ClientFrom(ctx context.Context) Client {
	if c, ok := ctx.Value(clientKey{}).(Client); ok {
		return c
	}
	return Client{}
}
