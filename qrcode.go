package main

import (
	"strings"

	qrcode "github.com/skip2/go-qrcode"
)

// EscapeWifiString handles the special character escaping for SSID and Password.
func EscapeWifiString(s string) string {
	r := strings.NewReplacer(
		`\`, `\\`,
		`;`, `\;`,
		`,`, `\,`,
		`:`, `\:`,
		`"`, `\"`,
	)
	return r.Replace(s)
}

// qrAuthType maps an nmcli security label such as "WPA1 WPA2" to the
// authentication type of a Wi-Fi QR code.
func qrAuthType(security string) string {
	switch {
	case security == "" || security == "--":
		return "nopass"
	case strings.Contains(security, "WEP"):
		return "WEP"
	}
	return "WPA"
}

// WifiQRPayload builds the Wi-Fi connection string encoded in the QR code.
func WifiQRPayload(ssid, password, security string, isHidden bool) string {
	var b strings.Builder

	b.WriteString("WIFI:S:")
	b.WriteString(EscapeWifiString(ssid))
	b.WriteString(";")

	switch auth := qrAuthType(security); auth {
	case "nopass":
		b.WriteString("T:nopass;")
	default:
		b.WriteString("T:" + auth + ";P:")
		b.WriteString(EscapeWifiString(password))
		b.WriteString(";")
	}

	if isHidden {
		b.WriteString("H:true;")
	}
	b.WriteString(";")
	return b.String()
}

// GenerateWifiQRCode returns a terminal-friendly QR code joining the network.
func GenerateWifiQRCode(ssid, password, security string, isHidden bool) (string, error) {
	q, err := qrcode.New(WifiQRPayload(ssid, password, security, isHidden), qrcode.Medium)
	if err != nil {
		return "", err
	}
	return q.ToSmallString(false), nil
}
