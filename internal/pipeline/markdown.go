package pipeline

import "regexp"

// markdownImagePattern matches markdown image links: ![alt](url)
var markdownImagePattern = regexp.MustCompile(`!\[[^\]]*\]\(([^)\s]+)\)`)

// extractImageURLs returns the URLs of all markdown image links in text, in
// order of appearance, deduplicated. Page descriptions use these links to
// reference material images that the render must reproduce.
func extractImageURLs(text string) []string {
	matches := markdownImagePattern.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return nil
	}

	seen := make(map[string]struct{}, len(matches))
	urls := make([]string, 0, len(matches))
	for _, match := range matches {
		url := match[1]
		if _, dup := seen[url]; dup {
			continue
		}
		seen[url] = struct{}{}
		urls = append(urls, url)
	}
	return urls
}
