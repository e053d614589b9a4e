package mailer

import (
	"fmt"
	"strings"

	"weddingrsvp/internal/models"
)

type template struct {
	subject string
	text    string
}

// Templates are plain text with {{name}}-style placeholders. Subjects and
// bodies exist per language; Spanish is the fallback when a language has
// no entry for a kind.
var templates = map[Kind]map[models.Language]template{
	KindGuestCode: {
		models.LangEnglish: {
			subject: "Your wedding invitation code",
			text: `Hi {{name}},

Here is your personal invitation code: {{code}}

Use it together with your email or phone number to sign in and manage your RSVP:
{{base_url}}

See you there!`,
		},
		models.LangSpanish: {
			subject: "Tu código de invitación a la boda",
			text: `Hola {{name}},

Este es tu código de invitación personal: {{code}}

Úsalo junto con tu correo o teléfono para entrar y gestionar tu confirmación:
{{base_url}}

¡Nos vemos allí!`,
		},
		models.LangRomanian: {
			subject: "Codul tău de invitație la nuntă",
			text: `Bună {{name}},

Acesta este codul tău personal de invitație: {{code}}

Folosește-l împreună cu emailul sau telefonul tău pentru a te conecta și a-ți gestiona confirmarea:
{{base_url}}

Ne vedem acolo!`,
		},
	},
	KindMagicLink: {
		models.LangEnglish: {
			subject: "Your access link for the wedding RSVP",
			text: `Hi {{name}},

Tap the link below to open your RSVP. It works once and expires in {{ttl_minutes}} minutes:

{{link}}

If you didn't request this, you can ignore this email.`,
		},
		models.LangSpanish: {
			subject: "Tu enlace de acceso para confirmar asistencia",
			text: `Hola {{name}},

Pulsa el enlace para abrir tu confirmación. Funciona una sola vez y caduca en {{ttl_minutes}} minutos:

{{link}}

Si no lo has solicitado, puedes ignorar este correo.`,
		},
		models.LangRomanian: {
			subject: "Linkul tău de acces pentru confirmare",
			text: `Bună {{name}},

Apasă pe linkul de mai jos pentru a-ți deschide confirmarea. Funcționează o singură dată și expiră în {{ttl_minutes}} minute:

{{link}}

Dacă nu ai cerut acest link, poți ignora acest email.`,
		},
	},
	KindRSVPConfirmation: {
		models.LangEnglish: {
			subject: "We got your RSVP!",
			text: `Hi {{name}},

Thank you, your answer has been recorded: {{summary}}

You can change it any time before {{deadline}} by signing in again:
{{base_url}}`,
		},
		models.LangSpanish: {
			subject: "¡Hemos recibido tu confirmación!",
			text: `Hola {{name}},

Gracias, tu respuesta ha quedado registrada: {{summary}}

Puedes cambiarla en cualquier momento antes del {{deadline}} entrando de nuevo:
{{base_url}}`,
		},
		models.LangRomanian: {
			subject: "Am primit confirmarea ta!",
			text: `Bună {{name}},

Mulțumim, răspunsul tău a fost înregistrat: {{summary}}

Îl poți schimba oricând înainte de {{deadline}} conectându-te din nou:
{{base_url}}`,
		},
	},
}

// render resolves the template for a message and substitutes placeholders.
// Returns subject, text body, and a minimal HTML body.
func render(msg Message) (subject, text, html string, err error) {
	byLang, ok := templates[msg.Kind]
	if !ok {
		return "", "", "", fmt.Errorf("no template for message kind %q", msg.Kind)
	}
	tpl, ok := byLang[msg.Language]
	if !ok {
		tpl = byLang[models.LangSpanish]
	}

	subject = tpl.subject
	text = tpl.text
	text = strings.ReplaceAll(text, "{{name}}", msg.ToName)
	for key, val := range msg.Vars {
		text = strings.ReplaceAll(text, "{{"+key+"}}", val)
	}
	if strings.Contains(text, "{{") {
		return "", "", "", fmt.Errorf("unresolved placeholder in %s template", msg.Kind)
	}

	html = textToHTML(text)
	return subject, text, html, nil
}

// textToHTML wraps the plain-text body in paragraphs so clients that hide
// the text part still render something readable. Links become anchors.
func textToHTML(text string) string {
	var b strings.Builder
	b.WriteString("<html><body>")
	for _, para := range strings.Split(text, "\n\n") {
		b.WriteString("<p>")
		lines := strings.Split(para, "\n")
		for i, line := range lines {
			if i > 0 {
				b.WriteString("<br>")
			}
			if strings.HasPrefix(line, "http://") || strings.HasPrefix(line, "https://") {
				fmt.Fprintf(&b, `<a href="%s">%s</a>`, line, line)
			} else {
				b.WriteString(htmlEscape(line))
			}
		}
		b.WriteString("</p>")
	}
	b.WriteString("</body></html>")
	return b.String()
}

var htmlEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")

func htmlEscape(s string) string {
	return htmlEscaper.Replace(s)
}
