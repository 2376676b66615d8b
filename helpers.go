package newsroom

import (
	"fmt"
	"html/template"
	"strconv"
	"time"
)

var NowFunc func() time.Time = time.Now

var helpers template.FuncMap = template.FuncMap{
	"daysAgo": func(t time.Time) string {
		now := NowFunc()
		days := int(now.Sub(t).Hours() / 24)

		switch {
		case days < 1:
			return "today"
		case days == 1:
			return "yesterday"
		}
		return strconv.Itoa(days) + " days ago"
	},
	"date": func(t time.Time) string {
		return t.Format("2 January 2006")
	},
	"datetime": func(t time.Time) string {
		return t.Format("2006-01-02 15:04")
	},
	"markdown": renderBody,
	"pluralize": func(n int64, singular string, plural string) string {
		if n == 1 {
			return "1 " + singular
		}
		return strconv.FormatInt(n, 10) + " " + plural
	},
	"dict": func(values ...interface{}) (map[string]interface{}, error) {
		if len(values)%2 != 0 {
			return nil, fmt.Errorf("invalid dict call, odd number of arguments")
		}

		dict := make(map[string]interface{}, len(values)/2)
		for i := 0; i < len(values); i += 2 {
			k, ok := values[i].(string)
			if !ok {
				return nil, fmt.Errorf("dict keys must be strings")
			}
			dict[k] = values[i+1]
		}

		return dict, nil
	},
}
