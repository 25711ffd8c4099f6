//go:build windows

package hwquery

import "github.com/yusufpapurcu/wmi"

func wmiQuery(namespace, query string, dst any) error {
	if namespace == DefaultNamespace {
		return wmi.Query(query, dst)
	}
	return wmi.QueryNamespace(query, dst, namespace)
}
