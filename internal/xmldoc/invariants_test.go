package xmldoc_test

import (
	"testing"

	"libertyls/internal/source"
	"libertyls/internal/testkit"
	"libertyls/internal/xmldoc"
)

func TestSpanInvariants(t *testing.T) {
	inputs := map[string]string{
		"well formed": `<?xml version="1.0"?>
<server description="x">
  <featureManager>
    <feature>jaxrs-2.1</feature>
    <platform>javaee-8.0</platform>
  </featureManager>
  <include location="${shared.config.dir}/a.xml" optional="true"/>
</server>`,
		"unclosed":           "<server>\n  <featureManager>\n    <feature>jax</feature>\n  </bogus>\n",
		"mismatched close":   "<server><featureManager><feature>a</server>",
		"unterminated tag":   "<server><featureManager><feature",
		"truncated end tag":  "<server><featureManager><feature>a</feat\n<feature>b</feature></featureManager>",
		"tag inside tag":     "<server><featureManager <feature>x</feature></featureManager></server>",
		"comments and cdata": "<server><!-- <feature>x</feature> --><![CDATA[<a>]]><feature>y</feature></server>",
	}
	for name, text := range inputs {
		t.Run(name, func(t *testing.T) {
			fs := source.NewFileSet()
			doc := xmldoc.Parse(fs.Get(fs.AddVirtual("server.xml", []byte(text))))
			if err := testkit.CheckSpanInvariants(doc); err != nil {
				t.Fatal(err)
			}
		})
	}
}
