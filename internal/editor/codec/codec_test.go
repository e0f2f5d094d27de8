package codec

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/todaysafrica/newsroom/internal/models"
)

func TestSerialize_EndToEndExample(t *testing.T) {
	doc := `<h1>Title</h1><p>Intro</p><img src="https://cdn/x.jpg" data-media-id="42"><blockquote>Quote</blockquote>`

	blocks, err := Serialize(doc)
	require.NoError(t, err)
	require.Len(t, blocks, 4)

	assert.Equal(t, models.ContentBlock{Type: models.BlockText, Order: 0, Content: "<h1>Title</h1>"}, blocks[0])
	assert.Equal(t, models.ContentBlock{Type: models.BlockText, Order: 1, Content: "<p>Intro</p>"}, blocks[1])

	assert.Equal(t, models.BlockImage, blocks[2].Type)
	assert.Equal(t, 2, blocks[2].Order)
	assert.Equal(t, "https://cdn/x.jpg", blocks[2].Content)
	require.NotNil(t, blocks[2].MediaID)
	assert.Equal(t, int64(42), *blocks[2].MediaID)

	assert.Equal(t, models.ContentBlock{Type: models.BlockCitation, Order: 3, Content: "Quote"}, blocks[3])
}

func TestSerialize_OrdersAreContiguous(t *testing.T) {
	docs := []string{
		``,
		`<p>a</p>`,
		`<p>a</p><p>  </p><p>b</p><img><p></p><blockquote>q</blockquote>`,
		`text<p><br></p><h2>x</h2><!-- note --><figure><img src="/a.png"><figcaption>Cap</figcaption></figure>`,
	}
	for _, doc := range docs {
		blocks, err := Serialize(doc)
		require.NoError(t, err, doc)
		assert.NoError(t, models.ValidateOrder(blocks), doc)
	}
}

func TestSerialize_WhitespaceOnlyDocumentIsEmpty(t *testing.T) {
	blocks, err := Serialize("<p> </p>\n<p> </p><p><br></p><div>   </div>")
	require.NoError(t, err)
	assert.Empty(t, blocks)
}

func TestSerialize_ImageWithoutSourceIsDropped(t *testing.T) {
	blocks, err := Serialize(`<p>before</p><img alt="x"><p><img src="  "></p><p>after</p>`)
	require.NoError(t, err)
	require.Len(t, blocks, 2)
	for _, b := range blocks {
		assert.NotEqual(t, models.BlockImage, b.Type)
	}
	assert.Equal(t, "<p>after</p>", blocks[1].Content)
	assert.Equal(t, 1, blocks[1].Order)
}

func TestSerialize_ImageAttributes(t *testing.T) {
	tests := []struct {
		name    string
		doc     string
		src     string
		alt     string
		caption string
	}{
		{"bare", `<img src="https://cdn/a.jpg" alt="Alt" title="Cap">`, "https://cdn/a.jpg", "Alt", "Cap"},
		{"wrapped", `<p> <img src="https://cdn/b.jpg" data-caption="Legend"> </p>`, "https://cdn/b.jpg", "", "Legend"},
		{"figure", `<figure><img src="/c.jpg" alt="c"><figcaption> Fig </figcaption></figure>`, "/c.jpg", "c", "Fig"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			blocks, err := Serialize(tt.doc)
			require.NoError(t, err)
			require.Len(t, blocks, 1)
			b := blocks[0]
			assert.Equal(t, models.BlockImage, b.Type)
			assert.Equal(t, tt.src, b.Content)
			assert.Equal(t, tt.src, b.URL)
			assert.Equal(t, tt.alt, b.AltText)
			assert.Equal(t, tt.caption, b.Caption)
			assert.Nil(t, b.MediaID)
		})
	}
}

func TestSerialize_ParagraphWithTextAndImageIsText(t *testing.T) {
	blocks, err := Serialize(`<p>see <img src="https://cdn/a.jpg"></p>`)
	require.NoError(t, err)
	require.Len(t, blocks, 1)
	assert.Equal(t, models.BlockText, blocks[0].Type)
	assert.True(t, strings.HasPrefix(blocks[0].Content, "<p>see "))
}

func TestSerialize_Video(t *testing.T) {
	blocks, err := Serialize(`<iframe src="https://video/1"></iframe><p data-video-url="https://video/2">https://video/2</p><video><source src="https://video/3"></video>`)
	require.NoError(t, err)
	require.Len(t, blocks, 3)
	for i, want := range []string{"https://video/1", "https://video/2", "https://video/3"} {
		assert.Equal(t, models.BlockVideo, blocks[i].Type)
		assert.Equal(t, want, blocks[i].Content)
	}
}

func TestSerialize_UnresolvedPreview(t *testing.T) {
	doc := `<p>a</p><img src="blob:1234"><p>b</p>`

	_, err := Serialize(doc)
	assert.ErrorIs(t, err, ErrUnresolvedMedia)

	blocks, err := Serialize(doc, WithUnresolvedPolicy(DropUnresolved))
	require.NoError(t, err)
	require.Len(t, blocks, 2)
	assert.Equal(t, "<p>b</p>", blocks[1].Content)
	assert.Equal(t, 1, blocks[1].Order)
}

func TestSerialize_IsDeterministic(t *testing.T) {
	doc := `<h2>Sub</h2><p>Hello <strong>world</strong></p><img src="https://cdn/a.jpg" alt="a"><blockquote><p>q</p></blockquote>`
	first, err := Serialize(doc)
	require.NoError(t, err)
	second, err := Serialize(doc)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestDeserialize_SortsByOrder(t *testing.T) {
	blocks := []models.ContentBlock{
		{Type: models.BlockCitation, Order: 2, Content: "Q"},
		{Type: models.BlockText, Order: 0, Content: "<p>A</p>"},
		{Type: models.BlockVideo, Order: 3, Content: "https://v/1"},
		{Type: models.BlockText, Order: 1, Content: "<p>B</p>"},
	}
	got := Deserialize(blocks)
	assert.Equal(t, `<p>A</p><p>B</p><blockquote>Q</blockquote><p data-video-url="https://v/1">https://v/1</p>`, got)
}

func TestDeserialize_ImageSource(t *testing.T) {
	id := int64(7)
	tests := []struct {
		name  string
		block models.ContentBlock
		opts  []DeserializeOption
		want  string
	}{
		{
			name:  "absolute media url preferred",
			block: models.ContentBlock{Type: models.BlockImage, Content: "/uploads/a.jpg", Media: &models.Media{ID: 7, AccessURL: "https://cdn/a.jpg"}},
			want:  `<img src="https://cdn/a.jpg" data-media-id="7"/><p></p>`,
		},
		{
			name:  "relative resolved against base",
			block: models.ContentBlock{Type: models.BlockImage, Content: "/uploads/a.jpg", MediaID: &id, AltText: "A", Caption: `Say "hi"`},
			opts:  []DeserializeOption{WithMediaBaseURL("https://media.example/")},
			want:  `<img src="https://media.example/uploads/a.jpg" alt="A" title="Say &#34;hi&#34;" data-media-id="7"/><p></p>`,
		},
		{
			name:  "no source",
			block: models.ContentBlock{Type: models.BlockImage},
			want:  ``,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Deserialize([]models.ContentBlock{tt.block}, tt.opts...))
		})
	}
}

func TestMediaURL(t *testing.T) {
	assert.Equal(t, "https://media.example/medias/1.png", MediaURL("/medias/1.png", "https://media.example/"))
	assert.Equal(t, "https://cdn/a.jpg", MediaURL("https://cdn/a.jpg", "https://media.example"))
	assert.Equal(t, "/medias/1.png", MediaURL("/medias/1.png", ""))
}

func TestRoundTrip(t *testing.T) {
	id := int64(42)
	stored := []models.ContentBlock{
		{Type: models.BlockText, Order: 0, Content: "<h1>Title</h1>"},
		{Type: models.BlockText, Order: 1, Content: "<p>Intro <em>here</em></p>"},
		{Type: models.BlockImage, Order: 2, Content: "https://cdn/x.jpg", URL: "https://cdn/x.jpg", MediaID: &id, AltText: "alt", Caption: "cap"},
		{Type: models.BlockCitation, Order: 3, Content: "Quote"},
		{Type: models.BlockVideo, Order: 4, Content: "https://video/1", URL: "https://video/1"},
		{Type: models.BlockText, Order: 5, Content: "<ul><li>one</li><li>two</li></ul>"},
	}

	again, err := Serialize(Deserialize(stored))
	require.NoError(t, err)
	require.Len(t, again, len(stored))
	for i := range stored {
		assert.Equal(t, stored[i].Type, again[i].Type, "type at %d", i)
		assert.Equal(t, stored[i].Content, again[i].Content, "content at %d", i)
		assert.Equal(t, stored[i].MediaID, again[i].MediaID, "media at %d", i)
		assert.Equal(t, stored[i].Caption, again[i].Caption, "caption at %d", i)
		assert.Equal(t, stored[i].AltText, again[i].AltText, "alt at %d", i)
		assert.Equal(t, i, again[i].Order)
	}
}

func TestRoundTrip_BareTextBlocksStaySeparate(t *testing.T) {
	stored := []models.ContentBlock{
		{Type: models.BlockText, Order: 0, Content: "Premier paragraphe"},
		{Type: models.BlockText, Order: 1, Content: "Second <em>paragraphe</em>"},
		{Type: models.BlockText, Order: 2, Content: "<strong>Gras</strong> puis texte"},
	}

	markup := Deserialize(stored)
	assert.Equal(t, "<p>Premier paragraphe</p><p>Second <em>paragraphe</em></p><p><strong>Gras</strong> puis texte</p>", markup)

	again, err := Serialize(markup)
	require.NoError(t, err)
	require.Len(t, again, 3)
	assert.Equal(t, "<p>Premier paragraphe</p>", again[0].Content)
	assert.Equal(t, "<p>Second <em>paragraphe</em></p>", again[1].Content)
	assert.Equal(t, 2, again[2].Order)
}
