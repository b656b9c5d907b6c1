// File: internal/device/apps.go
package device

import "strings"

// The static app registries map the names the model is prompted with onto
// backend-specific identifiers: Android packages, HarmonyOS bundles, and iOS
// bundle IDs. Foreground detection walks the same tables in reverse.

var androidApps = map[string]string{
	"Settings":  "com.android.settings",
	"Chrome":    "com.android.chrome",
	"Camera":    "com.android.camera",
	"Gallery":   "com.android.gallery3d",
	"Clock":     "com.android.deskclock",
	"Calendar":  "com.android.calendar",
	"Contacts":  "com.android.contacts",
	"Messages":  "com.google.android.apps.messaging",
	"Maps":      "com.google.android.apps.maps",
	"Gmail":     "com.google.android.gm",
	"YouTube":   "com.google.android.youtube",
	"Play Store": "com.android.vending",
	"Files":     "com.google.android.documentsui",
	"WeChat":    "com.tencent.mm",
	"QQ":        "com.tencent.mobileqq",
	"Taobao":    "com.taobao.taobao",
	"Alipay":    "com.eg.android.AlipayGphone",
	"Meituan":   "com.sankuai.meituan",
	"Dianping":  "com.dianping.v1",
	"Douyin":    "com.ss.android.ugc.aweme",
	"Xiaohongshu": "com.xingin.xhs",
	"Weibo":     "com.sina.weibo",
	"Bilibili":  "tv.danmaku.bili",
	"JD":        "com.jingdong.app.mall",
	"Pinduoduo": "com.xunmeng.pinduoduo",
	"Amap":      "com.autonavi.minimap",
	"Ctrip":     "ctrip.android.view",
	"NetEase Music": "com.netease.cloudmusic",
	"Zhihu":     "com.zhihu.android",
	"Ele.me":    "me.ele",
}

var harmonyApps = map[string]string{
	"Settings": "com.huawei.hmos.settings",
	"Browser":  "com.huawei.hmos.browser",
	"Camera":   "com.huawei.hmos.camera",
	"Gallery":  "com.huawei.hmos.photos",
	"Clock":    "com.huawei.hmos.clock",
	"Calendar": "com.huawei.hmos.calendar",
	"Contacts": "com.huawei.hmos.contacts",
	"Notes":    "com.huawei.hmos.notepad",
	"Music":    "com.huawei.hmos.music",
	"AppGallery": "com.huawei.hmos.appgallery",
	"WeChat":   "com.tencent.wechat",
	"Taobao":   "com.taobao.taobao4hmos",
	"Alipay":   "com.alipay.mobile.client",
	"Douyin":   "com.ss.hm.ugc.aweme",
	"Bilibili": "yylx.danmaku.bili",
	"Xiaohongshu": "com.xingin.xhs_hos",
}

var iosApps = map[string]string{
	"Settings": "com.apple.Preferences",
	"Safari":   "com.apple.mobilesafari",
	"Camera":   "com.apple.camera",
	"Photos":   "com.apple.mobileslideshow",
	"Clock":    "com.apple.mobiletimer",
	"Calendar": "com.apple.mobilecal",
	"Contacts": "com.apple.MobileAddressBook",
	"Messages": "com.apple.MobileSMS",
	"Mail":     "com.apple.mobilemail",
	"Maps":     "com.apple.Maps",
	"App Store": "com.apple.AppStore",
	"Notes":    "com.apple.mobilenotes",
	"Music":    "com.apple.Music",
	"WeChat":   "com.tencent.xin",
	"Taobao":   "com.taobao.taobao4iphone",
	"Alipay":   "com.alipay.iphoneclient",
	"Douyin":   "com.ss.iphone.ugc.Aweme",
	"Bilibili": "tv.danmaku.bilianime",
}

func registryFor(backend BackendKind) map[string]string {
	switch backend {
	case BackendHDC:
		return harmonyApps
	case BackendIOS:
		return iosApps
	default:
		return androidApps
	}
}

// ResolveApp maps a registry name to its backend identifier.
func ResolveApp(backend BackendKind, name string) (string, bool) {
	id, ok := registryFor(backend)[name]
	return id, ok
}

// matchApp scans raw bridge output for any registered identifier and returns
// the matching registry name, or HomeApp when nothing is recognized.
func matchApp(backend BackendKind, output string) string {
	for name, id := range registryFor(backend) {
		if strings.Contains(output, id) {
			return name
		}
	}
	return HomeApp
}
