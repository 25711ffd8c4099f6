//go:build !windows

package hwquery

func wmiQuery(_, _ string, _ any) error {
	return ErrUnsupported
}
