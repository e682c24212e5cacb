package weather

import (
	"fmt"
	"strings"
	"time"
)

// conditionIcons maps weatherapi.com condition codes to emoji.
var conditionIcons = map[int]string{
	1000: "☀️", 1003: "⛅️", 1006: "☁️", 1009: "☁️", 1030: "🌫️",
	1063: "🌦️", 1066: "❄️", 1069: "❄️", 1072: "🌫️", 1087: "⛈️",
	1114: "❄️", 1117: "❄️", 1135: "🌫️", 1147: "🌫️", 1150: "🌦️",
	1153: "🌦️", 1168: "🌦️", 1171: "⛈️", 1180: "🌧️", 1183: "🌧️",
	1186: "🌧️", 1189: "🌧️", 1192: "🌧️", 1195: "🌧️", 1198: "🌧️",
	1201: "🌧️", 1204: "🌨️", 1207: "🌨️", 1210: "🌨️", 1213: "🌨️",
	1216: "🌨️", 1219: "🌨️", 1222: "❄️", 1225: "❄️", 1237: "🌨️",
	1240: "🌦️", 1243: "🌧️", 1246: "🌧️", 1249: "🌨️", 1252: "🌨️",
	1255: "🌨️", 1258: "🌨️", 1261: "🌨️", 1264: "🌨️", 1273: "⛈️",
	1276: "⛈️", 1279: "🌨️", 1282: "🌨️",
}

func icon(code int) string {
	return conditionIcons[code]
}

func hpaToMmHg(hpa float64) float64 {
	return hpa * 0.75006
}

func kphToMs(kph float64) float64 {
	return kph / 3.6
}

// FormatCurrent renders the current conditions block (HTML).
func FormatCurrent(cur *Current, now time.Time) string {
	var b strings.Builder
	b.WriteString("🌤 <b>Текущая погода</b>\n")
	fmt.Fprintf(&b, "🕒 Обновлено: %s\n", now.Format("2006-01-02 15:04"))
	fmt.Fprintf(&b, "%s %s\n", icon(cur.Condition.Code), cur.Condition.Text)
	fmt.Fprintf(&b, "🌡 Темп: %.1f°C (ощущается %.1f°C)\n", cur.TempC, cur.FeelsLikeC)
	fmt.Fprintf(&b, "💧 Влажность: %d%%\n", cur.Humidity)
	fmt.Fprintf(&b, "💨 Ветер: %.1f м/с\n", kphToMs(cur.WindKph))
	fmt.Fprintf(&b, "🧭 Давление: %.1f мм рт. ст.", hpaToMmHg(cur.PressureMb))
	return b.String()
}

// FormatForecast renders the hourly forecast for hours in [fromHour, toHour].
func FormatForecast(f *Forecast, fromHour, toHour int) string {
	lines := []string{"📅 <b>Прогноз на сегодня</b>"}

	for _, h := range f.Hours {
		hour, ok := parseHour(h.Time)
		if !ok || hour < fromHour || hour > toHour {
			continue
		}
		lines = append(lines, fmt.Sprintf(
			"%02d:00 %s (%s) %.1f°C (ощущается %.1f°C), 💧 %d%% осадков",
			hour, icon(h.Condition.Code), h.Condition.Text, h.TempC, h.FeelsLikeC, h.ChanceOfRain,
		))
	}
	return strings.Join(lines, "\n")
}

// parseHour extracts the hour from a "2006-01-02 15:04" timestamp.
func parseHour(s string) (int, bool) {
	t, err := time.Parse("2006-01-02 15:04", s)
	if err != nil {
		return 0, false
	}
	return t.Hour(), true
}
