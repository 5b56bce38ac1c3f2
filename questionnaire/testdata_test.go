package questionnaire

import (
	"testing"

	"github.com/stretchr/testify/require"
)

const sampleSchema = `kind: config
config:
  account_older_than: 2023-01-01
---
kind: header
title: About you
---
kind: text
title: Your nickname
---
kind: radio
title: Favourite season
choices:
  su: Summer
  wi: Winter
  au: Autumn
---
kind: checkbox
title: Languages
choices:
  go: Go
  py: Python
---
kind: tree
title: Where do you live
choices:
  eu:
    title: Europe
    choices:
      gr: Greece
      it: Italy
  na:
    title: North America
    choices:
      us: USA
---
kind: checktree
title: Visited
choices:
  eu:
    title: Europe
    choices:
      gr: Greece
      it: Italy
---
kind: header
title: Opinions
---
kind: scale-matrix
title: Rate
lines:
  - Speed
  - Price
choices:
  A1: Bad
  A2: OK
  A3: Good
---
kind: config
config:
  theme: dark
`

func sampleQuestions(t *testing.T) []Definition {
	t.Helper()
	defs, err := Parse([]byte(sampleSchema))
	require.NoError(t, err)
	return Prepare(defs).Questions()
}
