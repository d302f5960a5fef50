package session

import (
	"sync"
	"testing"

	"github.com/lukasbauer/samaksh/internal/lang"
	"github.com/lukasbauer/samaksh/internal/vision"
)

func found(text string) vision.Extraction {
	return vision.Extraction{Text: &text, Language: lang.Detect(text)}
}

func TestContext_StartsEmpty(t *testing.T) {
	s := NewContext().Read()
	if s.HasText() || s.HasImage() {
		t.Errorf("new context = %+v, want empty", s)
	}
	if s.Language != lang.Default {
		t.Errorf("language = %q, want %q", s.Language, lang.Default)
	}
}

func TestContext_UpdateWithText(t *testing.T) {
	c := NewContext()
	c.Update([]byte("img1"), found("नमस्ते"))

	s := c.Read()
	if !s.HasText() || *s.LastText != "नमस्ते" {
		t.Fatalf("LastText = %v, want नमस्ते", s.LastText)
	}
	if s.Language != lang.Hindi {
		t.Errorf("language = %q, want hi", s.Language)
	}
	if string(s.LastImage) != "img1" {
		t.Errorf("LastImage = %q, want img1", s.LastImage)
	}
}

func TestContext_NoTextKeepsPreviousText(t *testing.T) {
	c := NewContext()
	c.Update([]byte("img1"), found("Platform 4 departs at 10:15"))
	c.Update([]byte("img2"), vision.Extraction{Language: lang.English})

	s := c.Read()
	if !s.HasText() || *s.LastText != "Platform 4 departs at 10:15" {
		t.Errorf("LastText = %v, want previous text", s.LastText)
	}
	if string(s.LastImage) != "img2" {
		t.Errorf("LastImage = %q, want img2", s.LastImage)
	}
}

func TestContext_UpdateCopiesImage(t *testing.T) {
	c := NewContext()
	img := []byte("abc")
	c.Update(img, vision.Extraction{})
	img[0] = 'X'

	if got := string(c.Read().LastImage); got != "abc" {
		t.Errorf("LastImage = %q, want abc", got)
	}
}

func TestContext_SnapshotTextIsACopy(t *testing.T) {
	c := NewContext()
	c.Update(nil, found("hello"))

	s := c.Read()
	*s.LastText = "changed"

	if got := *c.Read().LastText; got != "hello" {
		t.Errorf("LastText = %q, want hello", got)
	}
}

func TestContext_TextAndLanguageStayPaired(t *testing.T) {
	c := NewContext()
	pairs := []vision.Extraction{found("hello world"), found("नमस्ते दुनिया")}

	var wg sync.WaitGroup
	stop := make(chan struct{})
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; ; i++ {
				select {
				case <-stop:
					return
				default:
				}
				c.Update([]byte("img"), pairs[(i+w)%2])
			}
		}(w)
	}

	for i := 0; i < 2000; i++ {
		s := c.Read()
		if !s.HasText() {
			continue
		}
		if lang.Detect(*s.LastText) != s.Language {
			t.Errorf("torn read: text %q with language %q", *s.LastText, s.Language)
			break
		}
	}
	close(stop)
	wg.Wait()
}
