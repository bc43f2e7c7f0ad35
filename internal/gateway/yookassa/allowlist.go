package yookassa

import (
	"fmt"
	"net/netip"
	"strings"
)

// IPAllowList проверяет, что уведомление пришло с адресов ЮKassa.
type IPAllowList struct {
	prefixes []netip.Prefix
}

// NewIPAllowList принимает подсети CIDR и одиночные адреса.
func NewIPAllowList(entries []string) (*IPAllowList, error) {
	list := &IPAllowList{}
	for _, raw := range entries {
		entry := strings.TrimSpace(raw)
		if entry == "" {
			continue
		}
		if strings.Contains(entry, "/") {
			prefix, err := netip.ParsePrefix(entry)
			if err != nil {
				return nil, fmt.Errorf("invalid allow-list subnet %q: %w", entry, err)
			}
			list.prefixes = append(list.prefixes, prefix.Masked())
			continue
		}
		addr, err := netip.ParseAddr(entry)
		if err != nil {
			return nil, fmt.Errorf("invalid allow-list address %q: %w", entry, err)
		}
		list.prefixes = append(list.prefixes, netip.PrefixFrom(addr, addr.BitLen()))
	}
	return list, nil
}

// Allowed сообщает, входит ли ip в список. IPv4, отображённый в IPv6, сравнивается как IPv4.
func (l *IPAllowList) Allowed(ip string) bool {
	addr, err := netip.ParseAddr(strings.TrimSpace(ip))
	if err != nil {
		return false
	}
	addr = addr.Unmap()
	for _, prefix := range l.prefixes {
		if prefix.Contains(addr) {
			return true
		}
	}
	return false
}
