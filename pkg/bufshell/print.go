package bufshell

import (
	"fmt"

	"circbuff/pkg/circbuff"
)

func GetStatString(cb *circbuff.CircularByteBuffer) string {
	return fmt.Sprintf("%v\t%v\t%v\t%v\t%v\n",
		cb.Cap(), cb.CurrentNumberOfBytes(), cb.Space(), cb.ReadPosition(), cb.WritePosition())
}
