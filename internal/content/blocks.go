package content

import (
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
)

// Markdown renders Strapi rich-text blocks. Unknown block types render
// their text as a paragraph.
func Markdown(blocks gjson.Result) string {
	var out []string
	blocks.ForEach(func(_, b gjson.Result) bool {
		if md := block(b); md != "" {
			out = append(out, md)
		}
		return true
	})
	return strings.Join(out, "\n\n")
}

func block(b gjson.Result) string {
	switch b.Get("type").String() {
	case "heading":
		level := int(b.Get("level").Int())
		level = max(1, min(level, 6))
		return strings.Repeat("#", level) + " " + inline(b.Get("children"))
	case "list":
		ordered := b.Get("format").String() == "ordered"
		var lines []string
		n := 0
		b.Get("children").ForEach(func(_, item gjson.Result) bool {
			n++
			marker := "- "
			if ordered {
				marker = strconv.Itoa(n) + ". "
			}
			lines = append(lines, marker+inline(item.Get("children")))
			return true
		})
		return strings.Join(lines, "\n")
	case "quote":
		text := inline(b.Get("children"))
		if text == "" {
			return ""
		}
		return "> " + strings.ReplaceAll(text, "\n", "\n> ")
	case "code":
		var sb strings.Builder
		b.Get("children").ForEach(func(_, c gjson.Result) bool {
			sb.WriteString(plainText(c))
			return true
		})
		return "```\n" + sb.String() + "\n```"
	case "image":
		url := b.Get("image.url").String()
		if url == "" {
			return ""
		}
		alt := b.Get("image.alternativeText").String()
		if alt == "" {
			alt = b.Get("image.name").String()
		}
		return "![" + alt + "](" + url + ")"
	default:
		return inline(b.Get("children"))
	}
}

func inline(children gjson.Result) string {
	var sb strings.Builder
	children.ForEach(func(_, c gjson.Result) bool {
		if c.Get("type").String() == "link" {
			sb.WriteString("[" + inline(c.Get("children")) + "](" + c.Get("url").String() + ")")
			return true
		}
		text := c.Get("text").String()
		if text == "" {
			return true
		}
		switch {
		case c.Get("code").Bool():
			text = "`" + text + "`"
		case c.Get("bold").Bool() && c.Get("italic").Bool():
			text = "***" + text + "***"
		case c.Get("bold").Bool():
			text = "**" + text + "**"
		case c.Get("italic").Bool():
			text = "_" + text + "_"
		}
		sb.WriteString(text)
		return true
	})
	return strings.TrimSpace(sb.String())
}

func plainText(c gjson.Result) string {
	if c.Get("type").String() == "link" {
		var parts []string
		c.Get("children").ForEach(func(_, cc gjson.Result) bool {
			parts = append(parts, cc.Get("text").String())
			return true
		})
		return strings.Join(parts, "")
	}
	return c.Get("text").String()
}
