package feast

import (
	"fmt"
	"strconv"
	"strings"
)

// NewClient 按 "host:port" 或 "grpc://host:port" 创建 gRPC 客户端。
func NewClient(endpoint, project string, opts ...ClientOption) (Client, error) {
	host, port, err := parseEndpoint(endpoint)
	if err != nil {
		return nil, err
	}
	return NewGrpcClient(host, port, project, opts...)
}

// parseEndpoint 解析端点地址，缺省端口返回 0。
func parseEndpoint(endpoint string) (string, int, error) {
	endpoint = strings.TrimPrefix(endpoint, "grpc://")
	if endpoint == "" {
		return "", 0, fmt.Errorf("feast: empty endpoint")
	}
	host, portStr, found := strings.Cut(endpoint, ":")
	if !found {
		return host, 0, nil
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return "", 0, fmt.Errorf("feast: invalid port in %q: %w", endpoint, err)
	}
	return host, port, nil
}
