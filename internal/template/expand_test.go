package template

import (
	"testing"

	"github.com/foxzi/leadmail/internal/models"
)

func TestExpand(t *testing.T) {
	tests := []struct {
		name string
		tmpl string
		ctx  Context
		want string
	}{
		{
			name: "full substitution",
			tmpl: "Hi {{firstName}}, re {{propertyAddress}}",
			ctx:  Context{FirstName: "Ana", PropertyAddress: "12 Oak St"},
			want: "Hi Ana, re 12 Oak St",
		},
		{
			name: "missing value defaults to empty",
			tmpl: "Hi {{firstName}}, re {{propertyAddress}}",
			ctx:  Context{PropertyAddress: "12 Oak St"},
			want: "Hi , re 12 Oak St",
		},
		{
			name: "unknown placeholder passthrough",
			tmpl: "Hi {{unknownVar}}",
			ctx:  Context{},
			want: "Hi {{unknownVar}}",
		},
		{
			name: "unknown key in context is ignored",
			tmpl: "Hi {{nickname}}",
			ctx:  Context{"nickname": "Bo"},
			want: "Hi {{nickname}}",
		},
		{
			name: "repeated token",
			tmpl: "{{email}} / {{email}}",
			ctx:  Context{Email: "a@b.c"},
			want: "a@b.c / a@b.c",
		},
		{
			name: "spaced token is not the delimited form",
			tmpl: "Hi {{ firstName }}",
			ctx:  Context{FirstName: "Ana"},
			want: "Hi {{ firstName }}",
		},
		{
			name: "values are not rescanned",
			tmpl: "{{firstName}}",
			ctx:  Context{FirstName: "{{lastName}}", LastName: "Silva"},
			want: "{{lastName}}",
		},
		{
			name: "no escaping",
			tmpl: "<p>{{propertyAddress}}</p>",
			ctx:  Context{PropertyAddress: "<b>1 & 2</b>"},
			want: "<p><b>1 & 2</b></p>",
		},
		{
			name: "no placeholders",
			tmpl: "plain",
			ctx:  nil,
			want: "plain",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Expand(tt.tmpl, tt.ctx); got != tt.want {
				t.Errorf("Expand() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestExpandIdempotent(t *testing.T) {
	tmpl := "Hi {{firstName}} {{unknownVar}} at {{zoomLink}} on {{meetingDate}}"
	ctx := Context{FirstName: "Ana", ZoomLink: "https://zoom.us/j/1"}

	once := Expand(tmpl, ctx)
	if twice := Expand(once, ctx); twice != once {
		t.Errorf("Expand(Expand()) = %q, want %q", twice, once)
	}
}

func TestEveryVocabularyName(t *testing.T) {
	for _, name := range Vocabulary {
		got := Expand("{{"+name+"}}", Context{name: "v"})
		if got != "v" {
			t.Errorf("Expand({{%s}}) = %q, want %q", name, got, "v")
		}
	}
}

func TestUnknown(t *testing.T) {
	got := Unknown("{{firstName}} {{foo}} {{bar}} {{foo}}")
	if len(got) != 2 || got[0] != "foo" || got[1] != "bar" {
		t.Errorf("Unknown() = %v, want [foo bar]", got)
	}
}

func TestLeadContext(t *testing.T) {
	lead := &models.Lead{
		Email:           "ana@example.com",
		FirstName:       "Ana",
		LastName:        "Silva",
		PropertyAddress: "12 Oak St",
		PropertyPrice:   "$500k",
	}
	sender := &models.SMTPSettings{CompanyName: "Acme Realty", CompanyPhone: "555-0100"}
	meeting := Meeting{ZoomLink: "https://zoom.us/j/1", Date: "May 1", Time: "10:00"}

	ctx := LeadContext(lead, meeting, sender)

	want := map[string]string{
		FirstName:       "Ana",
		LastName:        "Silva",
		Email:           "ana@example.com",
		PropertyAddress: "12 Oak St",
		PropertyPrice:   "$500k",
		ZoomLink:        "https://zoom.us/j/1",
		MeetingDate:     "May 1",
		MeetingTime:     "10:00",
		SenderName:      "Acme Realty",
		CompanyName:     "Acme Realty",
		CompanyPhone:    "555-0100",
	}
	for k, v := range want {
		if ctx[k] != v {
			t.Errorf("ctx[%s] = %q, want %q", k, ctx[k], v)
		}
	}
}

func TestRender(t *testing.T) {
	tmpl := models.DefaultTemplate()
	ctx := Context{FirstName: "Ana", PropertyAddress: "12 Oak St", PropertyPrice: "$1", ZoomLink: "z"}

	r := Render(tmpl, ctx)
	if r.Subject != "Great News About 12 Oak St" {
		t.Errorf("Subject = %q", r.Subject)
	}
	want := `<h1>Hello Ana!</h1><p>Property: 12 Oak St</p><p>Price: $1</p><p><a href="z">Join Zoom</a></p>`
	if r.Body != want {
		t.Errorf("Body = %q, want %q", r.Body, want)
	}
}
