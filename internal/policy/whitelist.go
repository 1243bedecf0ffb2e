// Package policy holds the static safety whitelist and the loader that turns
// stored preferences into a PolicySnapshot.
package policy

import "strings"

// criticalApps must never be blocked: launchers, dialers, settings, and the
// vendor services a user needs to recover the device.
var criticalApps = []string{
	// Core Android
	"android",
	"com.android.systemui",
	"com.android.settings",
	"com.android.launcher",
	"com.android.launcher3",
	"com.android.phone",
	"com.android.dialer",
	"com.android.contacts",
	"com.android.mtp",
	"com.android.providers",
	"com.android.emergency",
	"com.android.vending",
	"com.android.incallui",
	"com.android.mms",
	"com.android.thememanager",
	"com.android.nfc",
	"com.android.bluetooth",
	"com.android.server.telecom",

	// Google
	"com.google.android.apps.nexuslauncher",
	"com.google.android.dialer",
	"com.google.android.contacts",
	"com.google.android.gsf",
	"com.google.android.gms",
	"com.google.android.setupwizard",
	"com.google.android.apps.maps",
	"com.google.android.calendar",
	"com.google.android.apps.docs",
	"com.google.android.gm",
	"com.google.android.apps.messaging",

	// Samsung
	"com.samsung.android.oneui.home",
	"com.samsung.android.app.launcher",
	"com.sec.android.app.launcher",
	"com.samsung.android.dialer",
	"com.samsung.android.incall",
	"com.samsung.android.messaging",
	"com.samsung.android.contacts",
	"com.samsung.android.app.contacts",
	"com.samsung.android.bixby",
	"com.samsung.android.setting",
	"com.samsung.android.emergencymode",

	// Xiaomi
	"com.miui.home",
	"com.mi.android.globallauncher",
	"com.miui.securitycenter",
	"com.xiaomi.micloud",
	"com.xiaomi.finddevice",
	"com.miui.systemAdSolution",
	"com.miui.powerkeeper",
	"com.miui.securityadd",

	// Huawei
	"com.huawei.android.launcher",
	"com.huawei.systemmanager",
	"com.huawei.android.thememanager",
	"com.huawei.phoneservice",
	"com.huawei.android.hsf",
	"com.huawei.hwid",
	"com.huawei.himovie",

	// OnePlus
	"net.oneplus.launcher",
	"net.oneplus.odm",
	"com.oneplus.security",
	"com.oneplus.account",
	"com.oneplus.backuprestore",

	// Oppo / Realme
	"com.oppo.launcher",
	"com.coloros.safecenter",
	"com.coloros.gamespace",
	"com.oppo.contacts",
	"com.realme.launcher",
	"com.coloros.phonenoareainquire",

	// Vivo
	"com.vivo.launcher",
	"com.iqoo.secure",
	"com.bbk.launcher2",
	"com.vivo.safecenter",

	// Other vendors
	"com.motorola.launcher3",
	"com.motorola.setupwizard",
	"com.evenwell.nps",
	"com.hmdglobal.app.activation",
	"com.sonymobile.home",
	"com.sonymobile.xperialounge",
	"com.lge.launcher2",
	"com.lge.launcher3",
	"com.lge.smartworld",
	"com.qualcomm.qti",
	"com.mediatek",
}

// shieldedPrefixes cover OS and vendor components. They are protected only
// while the system shield flag is on.
var shieldedPrefixes = []string{
	"com.android.",
	"android.",
	"com.google.android.gsf",
	"com.google.android.gms",
}

// Whitelist is the two-tier safety filter consulted before any user policy.
// It is built once and never changes at runtime.
type Whitelist struct {
	critical map[string]struct{}
	prefixes []string
}

// NewWhitelist returns the compiled-in whitelist.
func NewWhitelist() *Whitelist {
	return NewWhitelistWith(criticalApps, shieldedPrefixes)
}

// NewWhitelistWith creates a whitelist from explicit tiers (for testing).
func NewWhitelistWith(critical, prefixes []string) *Whitelist {
	w := &Whitelist{
		critical: make(map[string]struct{}, len(critical)),
		prefixes: append([]string(nil), prefixes...),
	}
	for _, id := range critical {
		w.critical[id] = struct{}{}
	}
	return w
}

// IsCritical reports whether surfaceID is in the unconditional tier.
func (w *Whitelist) IsCritical(surfaceID string) bool {
	_, ok := w.critical[surfaceID]
	return ok
}

// ShieldPrefix returns the shielded prefix surfaceID starts with, if any.
// Matching is case-sensitive.
func (w *Whitelist) ShieldPrefix(surfaceID string) (string, bool) {
	for _, p := range w.prefixes {
		if strings.HasPrefix(surfaceID, p) {
			return p, true
		}
	}
	return "", false
}

// CriticalApps returns a copy of the unconditional tier.
func (w *Whitelist) CriticalApps() []string {
	out := make([]string, 0, len(w.critical))
	for id := range w.critical {
		out = append(out, id)
	}
	return out
}
