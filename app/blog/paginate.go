package blog

// PageView is a window over a snapshot's post list. It never shares
// mutable state with the snapshot beyond the backing array of the slice.
type PageView struct {
	Posts      []Post
	Total      int
	TotalPages int
}

// Paginate slices posts into a 1-based page window of the given size,
// clamped to the list bounds. Out-of-range pages yield an empty slice,
// not an error.
func Paginate(posts []Post, page, size int) PageView {
	total := len(posts)

	if size < 1 {
		return PageView{Posts: []Post{}, Total: total}
	}

	view := PageView{
		Posts:      []Post{},
		Total:      total,
		TotalPages: (total + size - 1) / size,
	}

	if page < 1 {
		return view
	}

	start := (page - 1) * size
	if start >= total {
		return view
	}

	end := start + size
	if end > total {
		end = total
	}

	view.Posts = posts[start:end]
	return view
}
