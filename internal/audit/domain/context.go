package domain

import "context"

type clientInfoKey struct{}

type clientInfo struct {
	ipAddress string
	userAgent string
}

// WithClientInfo attaches the caller's network details to ctx.
func WithClientInfo(ctx context.Context, ipAddress, userAgent string) context.Context {
	return context.WithValue(ctx, clientInfoKey{}, clientInfo{ipAddress: ipAddress, userAgent: userAgent})
}

// ClientInfoFromContext returns the IP address and user agent set by WithClientInfo.
func ClientInfoFromContext(ctx context.Context) (string, string) {
	if ctx == nil {
		return "", ""
	}
	info, _ := ctx.Value(clientInfoKey{}).(clientInfo)
	return info.ipAddress, info.userAgent
}
