// Package imggen 图片生成模块
package imggen

import (
	"bytes"
	"fmt"
	"image/color"
	"image/png"
	"os"
	"time"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
)

// RankData 发包排行条目
type RankData struct {
	Rank        int
	Username    string
	PacketCount int64
	TotalAmount string // 两位小数展示串
}

// LeaderboardConfig 排行榜图片配置
type LeaderboardConfig struct {
	Title       string
	Subtitle    string
	Money       string // 货币名称
	FontPath    string // 中文字体文件，空串回落到 gg 默认字体
	Items       []RankData
	GeneratedAt time.Time
}

// 颜色定义
var (
	bgColor      = color.RGBA{120, 20, 20, 255}    // 红包红渐变起始
	bgEndColor   = color.RGBA{35, 15, 15, 255}     // 渐变终点
	cardColor    = color.RGBA{60, 22, 22, 255}     // 卡片背景
	goldColor    = color.RGBA{255, 215, 0, 255}    // 金色
	silverColor  = color.RGBA{192, 192, 192, 255}  // 银色
	bronzeColor  = color.RGBA{205, 127, 50, 255}   // 铜色
	textColor    = color.RGBA{255, 245, 230, 255}  // 米白文字
	subTextColor = color.RGBA{210, 180, 160, 255}  // 灰褐文字
	accentColor  = color.RGBA{255, 180, 60, 255}   // 橙金强调
)

// loadFace 加载 TTF 字体
// 路径缺省或加载失败时返回 nil，调用方回落到默认字体
func loadFace(path string, points float64) font.Face {
	if path == "" {
		return nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil
	}
	ttf, err := truetype.Parse(data)
	if err != nil {
		return nil
	}
	return truetype.NewFace(ttf, &truetype.Options{
		Size:    points,
		Hinting: font.HintingFull,
	})
}

// setFace 切换字号，字体不可用时保持 gg 默认
func setFace(dc *gg.Context, path string, points float64) {
	if face := loadFace(path, points); face != nil {
		dc.SetFontFace(face)
	}
}

// GenerateLeaderboard 生成发包排行榜图片
func GenerateLeaderboard(cfg LeaderboardConfig) ([]byte, error) {
	width := 600
	headerHeight := 120
	itemHeight := 70
	footerHeight := 50
	padding := 20

	itemCount := len(cfg.Items)
	if itemCount > 10 {
		itemCount = 10
	}

	height := headerHeight + itemCount*itemHeight + footerHeight + padding*2
	dc := gg.NewContext(width, height)

	drawBackground(dc, width, height)
	drawHeader(dc, width, cfg)

	startY := float64(headerHeight + padding)
	for i, item := range cfg.Items {
		if i >= 10 {
			break
		}
		drawRankItem(dc, width, startY+float64(i*itemHeight), item, cfg)
	}

	drawFooter(dc, width, height, cfg)

	return exportPNG(dc)
}

// drawBackground 绘制纵向渐变背景
func drawBackground(dc *gg.Context, width, height int) {
	for y := 0; y < height; y++ {
		t := float64(y) / float64(height)
		r := uint8(float64(bgColor.R)*(1-t) + float64(bgEndColor.R)*t)
		g := uint8(float64(bgColor.G)*(1-t) + float64(bgEndColor.G)*t)
		b := uint8(float64(bgColor.B)*(1-t) + float64(bgEndColor.B)*t)
		dc.SetColor(color.RGBA{r, g, b, 255})
		dc.DrawRectangle(0, float64(y), float64(width), 1)
		dc.Fill()
	}
}

// drawHeader 绘制标题
func drawHeader(dc *gg.Context, width int, cfg LeaderboardConfig) {
	setFace(dc, cfg.FontPath, 28)
	dc.SetColor(textColor)
	dc.DrawStringAnchored("🧧 "+cfg.Title, float64(width)/2, 45, 0.5, 0.5)

	setFace(dc, cfg.FontPath, 16)
	dc.SetColor(subTextColor)
	dc.DrawStringAnchored(cfg.Subtitle, float64(width)/2, 80, 0.5, 0.5)

	dc.SetColor(accentColor)
	dc.SetLineWidth(2)
	dc.DrawLine(50, 110, float64(width-50), 110)
	dc.Stroke()
}

// drawRankItem 绘制单个排行条目
func drawRankItem(dc *gg.Context, width int, y float64, item RankData, cfg LeaderboardConfig) {
	cardX := 20.0
	cardW := float64(width - 40)
	cardH := 60.0

	dc.SetColor(color.RGBA{cardColor.R, cardColor.G, cardColor.B, 200})
	dc.DrawRoundedRectangle(cardX, y, cardW, cardH, 10)
	dc.Fill()

	rankX := cardX + 35
	rankY := y + cardH/2

	var rankColor color.RGBA
	rankMark := ""
	switch item.Rank {
	case 1:
		rankColor = goldColor
		rankMark = "🥇"
	case 2:
		rankColor = silverColor
		rankMark = "🥈"
	case 3:
		rankColor = bronzeColor
		rankMark = "🥉"
	default:
		rankColor = subTextColor
		rankMark = fmt.Sprintf("%d", item.Rank)
	}

	setFace(dc, cfg.FontPath, 20)
	dc.SetColor(rankColor)
	dc.DrawStringAnchored(rankMark, rankX, rankY, 0.5, 0.5)

	setFace(dc, cfg.FontPath, 18)
	dc.SetColor(textColor)
	dc.DrawStringAnchored(item.Username, cardX+100, rankY-10, 0, 0.5)

	setFace(dc, cfg.FontPath, 14)
	dc.SetColor(subTextColor)
	statsText := fmt.Sprintf("发包 %d 个 | 合计 %s %s", item.PacketCount, item.TotalAmount, cfg.Money)
	dc.DrawStringAnchored(statsText, cardX+100, rankY+12, 0, 0.5)

	dc.SetColor(accentColor)
	dc.DrawCircle(cardX+cardW-30, rankY, 5)
	dc.Fill()
}

// drawFooter 绘制底部
func drawFooter(dc *gg.Context, width, height int, cfg LeaderboardConfig) {
	setFace(dc, cfg.FontPath, 12)
	dc.SetColor(subTextColor)
	footerText := fmt.Sprintf("生成于 %s", cfg.GeneratedAt.Format("2006-01-02 15:04"))
	dc.DrawStringAnchored(footerText, float64(width)/2, float64(height-25), 0.5, 0.5)
}

// exportPNG 导出为 PNG
func exportPNG(dc *gg.Context) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, dc.Image()); err != nil {
		return nil, fmt.Errorf("编码 PNG 失败: %w", err)
	}
	return buf.Bytes(), nil
}
